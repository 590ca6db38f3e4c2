package mailbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailfeed/internal/model"
	"mailfeed/internal/normalize"
)

type fakeSource struct {
	msgs     map[uint32][]byte
	failUIDs map[uint32]bool
}

func (f *fakeSource) ListIDsSince(lastUID uint32) ([]uint32, error) {
	var uids []uint32
	for uid := range f.msgs {
		if uid > lastUID {
			uids = append(uids, uid)
		}
	}
	for uid := range f.failUIDs {
		if uid > lastUID {
			uids = append(uids, uid)
		}
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

func (f *fakeSource) FetchRaw(uid uint32) ([]byte, error) {
	if f.failUIDs[uid] {
		return nil, fmt.Errorf("connection reset")
	}
	raw, ok := f.msgs[uid]
	if !ok {
		return nil, fmt.Errorf("message with UID %d not found", uid)
	}
	return raw, nil
}

func rawMessage(subject, date, body string) []byte {
	return []byte("Subject: " + subject + "\r\n" +
		"Date: " + date + "\r\n" +
		"From: sender@example.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n")
}

func newTestScanner(t *testing.T, source Source) (*Scanner, string) {
	t.Helper()
	dir := t.TempDir()
	return NewScanner(source, normalize.New("https://example.com"), dir, nil), dir
}

func TestScanFirstRunFetchesAll(t *testing.T) {
	source := &fakeSource{msgs: map[uint32][]byte{
		1: rawMessage("First Issue", "Mon, 01 Jan 2024 10:00:00 +0000", "one"),
		2: rawMessage("Second Issue", "Tue, 02 Jan 2024 10:00:00 +0000", "two"),
	}}
	scanner, dir := newTestScanner(t, source)

	entries, watermark, err := scanner.Scan(0, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(2), watermark)
	require.Len(t, entries, 2)
	assert.Equal(t, "First_Issue", entries[0].Title)
	assert.Equal(t, "Second_Issue", entries[1].Title)

	data, err := os.ReadFile(filepath.Join(dir, "First_Issue.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "one")
}

func TestScanNoNewMessages(t *testing.T) {
	source := &fakeSource{msgs: map[uint32][]byte{
		3: rawMessage("Old", "Mon, 01 Jan 2024 10:00:00 +0000", "old"),
	}}
	scanner, _ := newTestScanner(t, source)

	entries, watermark, err := scanner.Scan(3, nil)
	require.NoError(t, err)

	assert.Empty(t, entries)
	assert.Equal(t, uint32(3), watermark)
}

func TestScanFetchFailureHoldsWatermark(t *testing.T) {
	source := &fakeSource{
		msgs: map[uint32][]byte{
			5: rawMessage("Five", "Fri, 05 Jan 2024 10:00:00 +0000", "five"),
			7: rawMessage("Seven", "Sun, 07 Jan 2024 10:00:00 +0000", "seven"),
		},
		failUIDs: map[uint32]bool{6: true},
	}
	scanner, _ := newTestScanner(t, source)

	entries, watermark, err := scanner.Scan(0, nil)
	require.NoError(t, err)

	// Message 7 is archived now, but the watermark stays below the failed
	// UID 6 so it gets retried.
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(5), watermark)
}

func TestScanRetryDoesNotDuplicate(t *testing.T) {
	source := &fakeSource{msgs: map[uint32][]byte{
		6: rawMessage("Six", "Sat, 06 Jan 2024 10:00:00 +0000", "six"),
		7: rawMessage("Seven", "Sun, 07 Jan 2024 10:00:00 +0000", "seven"),
	}}
	scanner, _ := newTestScanner(t, source)

	// Seven was already archived by the run where six failed to fetch.
	existing := []model.Entry{
		{
			Date:  time.Date(2024, 1, 7, 10, 0, 0, 0, time.UTC),
			Title: "Seven",
			Link:  "https://example.com/Seven.html",
		},
	}

	entries, watermark, err := scanner.Scan(5, existing)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "Six", entries[0].Title)
	assert.Equal(t, uint32(7), watermark)
}

func TestScanRecurringSubjectIsNotDropped(t *testing.T) {
	source := &fakeSource{msgs: map[uint32][]byte{
		2: rawMessage("Daily Digest", "Tue, 02 Jan 2024 10:00:00 +0000", "issue two"),
	}}
	scanner, dir := newTestScanner(t, source)

	// Yesterday's issue derived the same id; today's message is still new.
	existing := []model.Entry{
		{
			Date:  time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Title: "Daily_Digest",
			Link:  "https://example.com/Daily_Digest.html",
		},
	}

	entries, watermark, err := scanner.Scan(1, existing)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "Daily_Digest", entries[0].Title)
	assert.Equal(t, uint32(2), watermark)

	data, err := os.ReadFile(filepath.Join(dir, "Daily_Digest.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "issue two")
}

func TestScanBadDateSkipsMessage(t *testing.T) {
	source := &fakeSource{msgs: map[uint32][]byte{
		4: rawMessage("Broken Date", "not a date", "body"),
		5: rawMessage("Fine", "Fri, 05 Jan 2024 10:00:00 +0000", "body"),
	}}
	scanner, _ := newTestScanner(t, source)

	entries, watermark, err := scanner.Scan(0, nil)
	require.NoError(t, err)

	// An unparseable date is permanent, so the watermark moves past it.
	require.Len(t, entries, 1)
	assert.Equal(t, "Fine", entries[0].Title)
	assert.Equal(t, uint32(5), watermark)
}

func TestScanCollidingSubjectsLastWriteWins(t *testing.T) {
	source := &fakeSource{msgs: map[uint32][]byte{
		1: rawMessage("Same Subject!", "Mon, 01 Jan 2024 10:00:00 +0000", "first body"),
		2: rawMessage("Same-Subject?", "Tue, 02 Jan 2024 10:00:00 +0000", "second body"),
	}}
	scanner, dir := newTestScanner(t, source)

	entries, _, err := scanner.Scan(0, nil)
	require.NoError(t, err)

	// Both messages are recorded; the shared body file holds the later one.
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0].Link, entries[1].Link)

	data, err := os.ReadFile(filepath.Join(dir, "Same_Subject_.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "second body")
}

func TestScanPrefersHTMLBody(t *testing.T) {
	raw := []byte("Subject: Multi Part\r\n" +
		"Date: Mon, 01 Jan 2024 10:00:00 +0000\r\n" +
		"From: sender@example.com\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--b1--\r\n")

	source := &fakeSource{msgs: map[uint32][]byte{1: raw}}
	scanner, dir := newTestScanner(t, source)

	entries, _, err := scanner.Scan(0, nil)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Description, "html version")

	data, err := os.ReadFile(filepath.Join(dir, "Multi_Part.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "html version")
}
