package feed

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mailfeed/internal/config"
	"mailfeed/internal/model"
)

// FileName is the feed document's name inside the output directory.
const FileName = "rss.xml"

// Materializer regenerates the feed document from the full entry set. The
// feed is a derived view: it is rewritten wholesale on every run and must
// be exactly reproducible from the state document.
type Materializer struct {
	baseURL string
	title   string
	outPath string
	now     func() time.Time
}

func NewMaterializer(cfg *config.Config) *Materializer {
	return &Materializer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		title:   cfg.FeedTitle,
		outPath: cfg.OutPath,
		now:     time.Now,
	}
}

// MergeAndEmit appends fresh entries to the existing history and writes the
// feed document. The returned slice is the new history in insertion order,
// ready to be saved; the feed itself is sorted by date descending with ties
// keeping their input order. Fresh entries are appended, not merged by key:
// duplicate suppression happens upstream in the scanner.
func (m *Materializer) MergeAndEmit(existing, fresh []model.Entry) ([]model.Entry, error) {
	merged := make([]model.Entry, 0, len(existing)+len(fresh))
	merged = append(merged, existing...)
	merged = append(merged, fresh...)

	sorted := make([]model.Entry, len(merged))
	copy(sorted, merged)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	if err := writeFeedFile(filepath.Join(m.outPath, FileName), m.buildFeed(sorted)); err != nil {
		return nil, err
	}

	return merged, nil
}
