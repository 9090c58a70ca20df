// Package loader reads knowledge-base source files into page-level documents.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"nutrirag/internal/domain"
)

// Supported reports whether name has an extension the loader can read.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// List returns the supported regular files directly inside dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && Supported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the file at path. PDFs yield one page per PDF page, 0-based;
// plain-text files yield a single page 0.
func Load(path string) (domain.Document, error) {
	doc := domain.Document{Name: filepath.Base(path), Path: path}
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc.Pages, err = readPDF(path)
	case ".txt", ".md":
		doc.Pages, err = readText(path)
	default:
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", doc.Name, err)
	}
	return doc, nil
}

func readText(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Page{{Index: 0, Text: string(data)}}, nil
}

func readPDF(path string) (pages []domain.Page, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	n := r.NumPage()
	pages = make([]domain.Page, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i-1, err)
		}
		pages = append(pages, domain.Page{Index: i - 1, Text: text})
	}
	return pages, nil
}
