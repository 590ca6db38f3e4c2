package feed

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"mailfeed/internal/model"
)

const atomNS = "http://www.w3.org/2005/Atom"

type atomFeed struct {
	XMLName  xml.Name    `xml:"feed"`
	Xmlns    string      `xml:"xmlns,attr"`
	ID       string      `xml:"id"`
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle,omitempty"`
	Updated  string      `xml:"updated"`
	Links    []atomLink  `xml:"link"`
	Entries  []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
}

type atomText struct {
	Type string `xml:"type,attr,omitempty"`
	Body string `xml:",chardata"`
}

type atomEntry struct {
	ID      string     `xml:"id"`
	Title   string     `xml:"title"`
	Updated string     `xml:"updated"`
	Links   []atomLink `xml:"link"`
	Content *atomText  `xml:"content,omitempty"`
	Summary *atomText  `xml:"summary,omitempty"`
}

// buildFeed maps the already-sorted entries onto the Atom document. Each
// item's id is the entry link, which keeps feed identity stable across
// regenerations.
func (m *Materializer) buildFeed(sorted []model.Entry) atomFeed {
	feedURL := m.baseURL + "/" + FileName

	f := atomFeed{
		Xmlns:    atomNS,
		ID:       feedURL,
		Title:    m.title,
		Subtitle: m.title,
		Updated:  m.now().UTC().Format(time.RFC3339),
		Links:    []atomLink{{Href: feedURL, Rel: "self"}},
	}

	for _, e := range sorted {
		f.Entries = append(f.Entries, atomEntry{
			ID:      e.Link,
			Title:   e.Title,
			Updated: e.Date.Format(time.RFC3339),
			Links:   []atomLink{{Href: e.Link}},
			Content: &atomText{Type: "html", Body: e.Description},
			Summary: &atomText{Type: "html", Body: e.Description},
		})
	}

	return f
}

func writeFeedFile(path string, f atomFeed) error {
	data, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feed: %w", err)
	}

	out := append([]byte(xml.Header), data...)
	out = append(out, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write feed file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace feed file: %w", err)
	}

	return nil
}
