package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"gopkg.in/yaml.v3"

	"mailfeed/internal/model"
	"mailfeed/internal/normalize"
	"mailfeed/internal/util"
)

// Export converts archived entries into standalone markdown files with
// YAML frontmatter. Mailbox entries are rebuilt from their archived HTML
// body files; manual link entries only carry their description stub.
type Export struct {
	archiveDir string
	converter  *md.Converter
}

func New(archiveDir string) *Export {
	return &Export{
		archiveDir: archiveDir,
		converter:  md.NewConverter("", true, nil),
	}
}

func (e *Export) ExportAll(entries []model.Entry, outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	fmt.Printf("Exporting %d entries...\n", len(entries))

	exported := 0
	for _, entry := range entries {
		if err := e.exportSingleEntry(entry, outDir); err != nil {
			fmt.Printf("Failed to export %s: %v\n", entry.Title, err)
			continue
		}
		exported++
	}

	fmt.Printf("Export completed: %d entries\n", exported)
	return nil
}

func (e *Export) exportSingleEntry(entry model.Entry, outDir string) error {
	content, err := e.buildMarkdownContent(entry)
	if err != nil {
		return err
	}

	filename := util.SafeFilename(entry.Title, 120) + ".md"
	filePath := resolveFilenameCollision(filepath.Join(outDir, filename))

	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (e *Export) buildMarkdownContent(entry model.Entry) (string, error) {
	frontMatter := model.FrontMatter{
		Title:      entry.Title,
		Date:       entry.Date,
		ExportedAt: time.Now().UTC(),
		Source:     entry.Link,
		Tags:       []string{"mailfeed"},
	}

	yamlBytes, err := yaml.Marshal(frontMatter)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	body, err := e.entryBody(entry)
	if err != nil {
		return "", err
	}

	var content strings.Builder
	content.WriteString("---\n")
	content.Write(yamlBytes)
	content.WriteString("---\n\n")
	content.WriteString(body)
	content.WriteString("\n")

	return content.String(), nil
}

func (e *Export) entryBody(entry model.Entry) (string, error) {
	bodyPath := filepath.Join(e.archiveDir, normalize.BodyFileName(entry.Title))
	html, err := os.ReadFile(bodyPath)
	if err != nil {
		// Manual link entries have no body file.
		if os.IsNotExist(err) {
			return entry.Description, nil
		}
		return "", fmt.Errorf("failed to read body file: %w", err)
	}

	markdown, err := e.converter.ConvertString(string(html))
	if err != nil {
		return "", fmt.Errorf("failed to convert body to markdown: %w", err)
	}

	return strings.TrimSpace(markdown), nil
}

func resolveFilenameCollision(originalPath string) string {
	if _, err := os.Stat(originalPath); os.IsNotExist(err) {
		return originalPath
	}

	dir := filepath.Dir(originalPath)
	ext := filepath.Ext(originalPath)
	base := strings.TrimSuffix(filepath.Base(originalPath), ext)

	counter := 2
	for {
		newFilename := fmt.Sprintf("%s-%d%s", base, counter, ext)
		newPath := filepath.Join(dir, newFilename)

		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}

		counter++
		if counter > 100 {
			newFilename = fmt.Sprintf("%s-%d%s", base, time.Now().Unix(), ext)
			return filepath.Join(dir, newFilename)
		}
	}
}
