// Package content loads a lecture payload into the in-memory page model.
package content

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"lecterm/internal/domain"
)

// PagePayload is one entry of the externally supplied page dataset.
type PagePayload struct {
	Time  float64 `json:"time"` // milliseconds
	Text  string  `json:"text"` // base64-encoded UTF-8
	Thumb string  `json:"thumb"`
}

// Payload is the wire shape of a lecture content file.
type Payload struct {
	Title string        `json:"title"`
	Media string        `json:"media"`
	Pages []PagePayload `json:"pages"`
}

// httpClient is shared across URL loads.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// Load reads a lecture payload from a URL or a local file path.
// The contract is identical regardless of source.
func Load(src string) (*domain.Lecture, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return LoadURL(src)
	}
	return LoadFile(src)
}

// LoadFile reads a lecture payload from a local JSON file.
func LoadFile(path string) (*domain.Lecture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	return Parse(data)
}

// LoadURL fetches a lecture payload over HTTP.
func LoadURL(url string) (*domain.Lecture, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch content: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content response: %w", err)
	}
	return Parse(data)
}

// Parse decodes a raw JSON payload into a Lecture.
func Parse(data []byte) (*domain.Lecture, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse content payload: %w", err)
	}

	return &domain.Lecture{
		Title: p.Title,
		Media: p.Media,
		Pages: DecodePages(p.Pages),
	}, nil
}

// DecodePages converts payload entries into pages with decoded text.
// A decode failure for one entry never aborts the load.
func DecodePages(entries []PagePayload) []domain.Page {
	pages := make([]domain.Page, 0, len(entries))
	for i, e := range entries {
		pages = append(pages, domain.Page{
			TimestampMs: int64(e.Time),
			ImageRef:    e.Thumb,
			Text:        decodeText(i, e.Text),
		})
	}
	return pages
}

// decodeText decodes base64 page text to UTF-8. On failure it falls back to
// whatever bytes did decode, or the empty string, rather than failing the load.
func decodeText(index int, encoded string) string {
	if encoded == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.Printf("content: failed to decode text for page %d: %v", index+1, err)
		return string(decoded)
	}
	return string(decoded)
}
