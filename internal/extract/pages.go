package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/majalla/internal/model"
)

// pageExtensions lists the file types LoadPages understands
var pageExtensions = map[string]bool{
	".txt":  true,
	".html": true,
	".htm":  true,
	".hocr": true,
}

// IsPageFile reports whether path has a supported page extension
func IsPageFile(path string) bool {
	return pageExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadFile reads one page file and returns its text
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".hocr":
		text, err := PageText(string(data))
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		return text, nil
	default:
		return string(data), nil
	}
}

// PageFiles lists supported page files in dir, sorted by name
func PageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsPageFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

// LoadPages reads every page file in dir in name order. The directory name
// becomes the document id and the position in name order the page index.
func LoadPages(dir string) ([]model.Page, error) {
	files, err := PageFiles(dir)
	if err != nil {
		return nil, err
	}

	documentID := filepath.Base(filepath.Clean(dir))
	pages := make([]model.Page, 0, len(files))
	for i, file := range files {
		text, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		pages = append(pages, model.Page{
			DocumentID: documentID,
			PageIndex:  i,
			Text:       text,
		})
	}

	return pages, nil
}

// DocumentID derives a stable document id from a file path
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
