package weblink

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"mailfeed/internal/model"
	"mailfeed/internal/normalize"
)

// Injector builds one synthetic archive entry from a manually supplied URL.
// The page title is fetched with a single bounded attempt; every failure on
// that path is recoverable and falls back to the URL itself as the title.
type Injector struct {
	client *http.Client
	norm   *normalize.Normalizer
	logger *log.Logger
}

func New(norm *normalize.Normalizer, timeout time.Duration, logger *log.Logger) *Injector {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	client := &http.Client{
		Timeout: timeout,
	}

	return &Injector{
		client: client,
		norm:   norm,
		logger: logger,
	}
}

// Inject fetches the title for url and returns the resulting entry. It
// never fails; the watermark is not involved on this path.
func (i *Injector) Inject(url string) model.Entry {
	title, err := i.fetchTitle(url)
	if err != nil {
		i.logger.Printf("Could not fetch title for %s, using the URL itself: %v", url, err)
		title = ""
	}

	return i.norm.FromURL(url, title)
}

func (i *Injector) fetchTitle(url string) (string, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", "mailfeed/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return "", fmt.Errorf("failed to extract title: %w", err)
	}

	return strings.TrimSpace(article.Title), nil
}
