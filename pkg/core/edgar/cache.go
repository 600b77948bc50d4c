package edgar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentCache is a file-based cache for fetched filing documents,
// keyed by (cik, accession number).
type DocumentCache struct {
	dir string
}

// NewDocumentCache creates a cache rooted at .cache/edgar/documents.
func NewDocumentCache() *DocumentCache {
	dir := filepath.Join(".cache", "edgar", "documents")
	os.MkdirAll(dir, 0755)
	return &DocumentCache{dir: dir}
}

// NewDocumentCacheWithDir creates a cache with a custom directory.
func NewDocumentCacheWithDir(dir string) *DocumentCache {
	os.MkdirAll(dir, 0755)
	return &DocumentCache{dir: dir}
}

func (c *DocumentCache) path(cik, accession string) string {
	accession = strings.ReplaceAll(accession, "-", "")
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.html", cik, accession))
}

// Get returns the cached document, or "" on a miss.
func (c *DocumentCache) Get(cik, accession string) string {
	data, err := os.ReadFile(c.path(cik, accession))
	if err != nil {
		return ""
	}
	return string(data)
}

// Set stores a document in the cache.
func (c *DocumentCache) Set(cik, accession, content string) error {
	return os.WriteFile(c.path(cik, accession), []byte(content), 0644)
}

// Has checks whether a document is cached.
func (c *DocumentCache) Has(cik, accession string) bool {
	_, err := os.Stat(c.path(cik, accession))
	return err == nil
}
