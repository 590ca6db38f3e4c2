package model

import (
	"time"
)

// Entry is one archived record: a mirrored mail message or a manually
// injected web link. Entries are immutable once created and are never
// removed from the archive.
type Entry struct {
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
}

// State is the durable record of sync progress: the highest mailbox UID
// already absorbed plus the full entry history in insertion order.
type State struct {
	LastUID uint32  `json:"last_uid"`
	Entries []Entry `json:"entries"`
}

type FrontMatter struct {
	Title      string    `yaml:"title"`
	Date       time.Time `yaml:"date"`
	ExportedAt time.Time `yaml:"exported_at"`
	Source     string    `yaml:"source"`
	Tags       []string  `yaml:"tags"`
}
