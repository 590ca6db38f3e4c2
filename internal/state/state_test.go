package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailfeed/internal/model"
)

func TestLoadMissingFile(t *testing.T) {
	store := New(t.TempDir(), nil)

	lastUID, entries, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, uint32(0), lastUID)
	assert.Empty(t, entries)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := New(t.TempDir(), nil)

	entries := []model.Entry{
		{
			Date:        time.Date(2024, 1, 2, 10, 0, 0, 0, time.FixedZone("", 3600)),
			Title:       "First_Newsletter",
			Link:        "https://example.com/First_Newsletter.html",
			Description: "hello",
		},
		{
			Date:        time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC),
			Title:       "Second_Newsletter",
			Link:        "https://example.com/Second_Newsletter.html",
			Description: "world",
		},
	}

	require.NoError(t, store.Save(42, entries))

	lastUID, loaded, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, uint32(42), lastUID)
	require.Len(t, loaded, 2)
	for i := range entries {
		assert.True(t, loaded[i].Date.Equal(entries[i].Date), "date %d should round-trip", i)
		assert.Equal(t, entries[i].Title, loaded[i].Title)
		assert.Equal(t, entries[i].Link, loaded[i].Link)
		assert.Equal(t, entries[i].Description, loaded[i].Description)
	}
}

func TestSaveFullyOverwrites(t *testing.T) {
	store := New(t.TempDir(), nil)

	require.NoError(t, store.Save(5, []model.Entry{
		{Date: time.Now().UTC(), Title: "A", Link: "https://example.com/A.html"},
		{Date: time.Now().UTC(), Title: "B", Link: "https://example.com/B.html"},
	}))
	require.NoError(t, store.Save(7, []model.Entry{
		{Date: time.Now().UTC(), Title: "C", Link: "https://example.com/C.html"},
	}))

	lastUID, entries, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, uint32(7), lastUID)
	require.Len(t, entries, 1)
	assert.Equal(t, "C", entries[0].Title)
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	lastUID, entries, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, uint32(0), lastUID)
	assert.Empty(t, entries)

	// The corrupt document is moved aside, not destroyed.
	_, err = os.Stat(filepath.Join(dir, FileName+".corrupt"))
	assert.NoError(t, err)
	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	require.NoError(t, store.Save(1, nil))

	_, err := os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
