package mailbox

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jhillyerd/enmime"

	"mailfeed/internal/model"
	"mailfeed/internal/normalize"
)

// Scanner produces the pending entries for every message above the current
// watermark. Per-message failures are contained: a fetch failure holds the
// watermark below that UID so the message is retried next run, while a
// normalization failure (broken MIME, unparseable date) is permanent and
// lets the watermark move on.
type Scanner struct {
	source  Source
	norm    *normalize.Normalizer
	outPath string
	logger  *log.Logger
}

func NewScanner(source Source, norm *normalize.Normalizer, outPath string, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	return &Scanner{
		source:  source,
		norm:    norm,
		outPath: outPath,
		logger:  logger,
	}
}

// Scan returns the new entries and the new watermark. The watermark is
// always >= lastUID and never reaches a UID whose fetch failed. Existing
// entries are consulted so that a forced re-scan after an earlier failure
// does not duplicate history.
func (s *Scanner) Scan(lastUID uint32, existing []model.Entry) ([]model.Entry, uint32, error) {
	uids, err := s.source.ListIDsSince(lastUID)
	if err != nil {
		return nil, lastUID, fmt.Errorf("failed to list messages: %w", err)
	}

	if len(uids) == 0 {
		s.logger.Printf("No new emails to process")
		return nil, lastUID, nil
	}

	// Entries archived by prior runs, keyed on link plus date so that only
	// a re-fetch of the same message matches. A new issue of a recurring
	// subject shares the link but carries its own Date header and must
	// still be archived. Within-run id collisions are deliberately not
	// caught here either: two subjects that normalize to the same id both
	// get an entry, and the later body file write wins.
	archived := make(map[string]bool, len(existing))
	for _, e := range existing {
		archived[archiveKey(e)] = true
	}

	var newEntries []model.Entry
	maxUID := lastUID
	var lowestFailed uint32

	for _, uid := range uids {
		// Some servers include the range start in an open-ended UID search.
		if uid <= lastUID {
			continue
		}

		raw, err := s.source.FetchRaw(uid)
		if err != nil {
			s.logger.Printf("Failed to fetch message %d: %v", uid, err)
			if lowestFailed == 0 || uid < lowestFailed {
				lowestFailed = uid
			}
			continue
		}

		entry, body, err := s.processMessage(raw)
		if err != nil {
			s.logger.Printf("Skipping message %d: %v", uid, err)
			if uid > maxUID {
				maxUID = uid
			}
			continue
		}

		if uid > maxUID {
			maxUID = uid
		}

		if archived[archiveKey(entry)] {
			s.logger.Printf("Message %d already archived as %s, skipping", uid, entry.Title)
			continue
		}

		fileName := normalize.BodyFileName(entry.Title)
		if err := os.WriteFile(filepath.Join(s.outPath, fileName), []byte(body), 0644); err != nil {
			return nil, lastUID, fmt.Errorf("failed to write body file %s: %w", fileName, err)
		}

		newEntries = append(newEntries, entry)
	}

	// Hold the watermark below the lowest fetch failure so that message is
	// picked up again; successes beyond it are archived now and deduped on
	// the re-scan.
	if lowestFailed != 0 && maxUID >= lowestFailed {
		maxUID = lowestFailed - 1
		if maxUID < lastUID {
			maxUID = lastUID
		}
	}

	return newEntries, maxUID, nil
}

// archiveKey identifies one concrete message in the archive. The link alone
// is not enough: recurring subjects ("Daily Digest") derive the same link on
// every issue, and only the Date header tells them apart.
func archiveKey(e model.Entry) string {
	return e.Link + "\n" + e.Date.UTC().Format(time.RFC3339Nano)
}

func (s *Scanner) processMessage(raw []byte) (model.Entry, string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return model.Entry{}, "", fmt.Errorf("failed to parse message: %w", err)
	}

	body := normalize.PickBody(env.HTML, env.Text)

	entry, err := s.norm.FromMessage(env.GetHeader("Subject"), body, env.GetHeader("Date"))
	if err != nil {
		return model.Entry{}, "", err
	}

	return entry, body, nil
}
