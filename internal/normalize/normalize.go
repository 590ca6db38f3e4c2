package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/gosimple/unidecode"

	"mailfeed/internal/model"
)

var nonAlnum = regexp.MustCompile(`[^0-9a-zA-Z]+`)

// Normalizer turns raw inputs (a decoded mail message or a manually
// supplied link) into canonical archive entries.
type Normalizer struct {
	baseURL string
	now     func() time.Time
}

func New(baseURL string) *Normalizer {
	return &Normalizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// MakeID derives the filesystem- and feed-safe identifier from a subject
// line: transliterate to ASCII, then collapse every run of characters
// outside [0-9A-Za-z] into a single underscore.
func MakeID(subject string) string {
	return nonAlnum.ReplaceAllString(unidecode.Unidecode(subject), "_")
}

// PickBody selects the body to archive: the HTML body when the message has
// one, otherwise the plain-text body.
func PickBody(html, text string) string {
	if html != "" {
		return html
	}
	return text
}

// StripControl removes every rune in Unicode general category C (control,
// format, surrogate, private use) and keeps everything else untouched.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.C) {
			return -1
		}
		return r
	}, s)
}

// FromMessage builds the entry for one mail message. An unparseable Date
// header is an error: the caller skips that single message rather than
// inventing a timestamp for it.
func (n *Normalizer) FromMessage(subject, body, rawDate string) (model.Entry, error) {
	date, err := dateparse.ParseAny(rawDate)
	if err != nil {
		return model.Entry{}, fmt.Errorf("failed to parse date %q: %w", rawDate, err)
	}

	id := MakeID(subject)

	return model.Entry{
		Date:        date,
		Title:       id,
		Link:        n.BodyFileURL(id),
		Description: StripControl(strings.TrimSpace(body)),
	}, nil
}

// FromURL builds the synthetic entry for a manually injected link. It never
// fails: an empty title falls back to the URL itself, and the date is the
// injection time.
func (n *Normalizer) FromURL(url, title string) model.Entry {
	if title == "" {
		title = url
	}

	return model.Entry{
		Date:        n.now(),
		Title:       title,
		Link:        url,
		Description: fmt.Sprintf("Manually added link: %s", title),
	}
}

// BodyFileName returns the name of the archived body file for an id.
func BodyFileName(id string) string {
	return id + ".html"
}

// BodyFileURL returns the public address of the archived body file.
func (n *Normalizer) BodyFileURL(id string) string {
	return n.baseURL + "/" + BodyFileName(id)
}
