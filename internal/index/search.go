package index

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

type Row struct {
	Title string `db:"title" json:"title"`
	Link  string `db:"link" json:"link"`
	Date  string `db:"date" json:"date"`
}

// Latest returns the most recently dated entries.
func (ix *Index) Latest(limit int) ([]Row, error) {
	query := `
		SELECT title, link, date
		FROM entries
		ORDER BY date DESC
	`

	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []Row
	if err := ix.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}

	return rows, nil
}

// Search runs a LIKE match over title, link and description.
func (ix *Index) Search(phrase string, limit int) ([]Row, error) {
	query := `
		SELECT title, link, date
		FROM entries
		WHERE title LIKE ? OR link LIKE ? OR description LIKE ?
		ORDER BY date DESC
	`

	pattern := "%" + phrase + "%"
	args := []interface{}{pattern, pattern, pattern}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []Row
	if err := ix.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}

	return rows, nil
}

// Print writes rows to stdout, as a table or as JSON.
func Print(rows []Row, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTITLE\tLINK")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Date, r.Title, r.Link)
	}

	return w.Flush()
}
