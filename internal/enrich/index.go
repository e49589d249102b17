package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agenthands/geoenrich/internal/record"
)

// IndexEntry lists the titles that resolved to one location.
type IndexEntry struct {
	Matches int      `json:"matches"`
	Works   []string `json:"works"`
}

// Index groups enriched records by location, for building maps downstream.
type Index struct {
	entries map[string]*IndexEntry
}

func NewIndex() *Index {
	return &Index{entries: make(map[string]*IndexEntry)}
}

// Add records every titled, located record of col.
func (ix *Index) Add(col record.Collection, titleField string) {
	for _, rec := range col {
		title := rec.Title(titleField)
		loc := NormalizeLocation(rec.Field(record.LocationField))
		if title == "" || loc == "" {
			continue
		}
		e, ok := ix.entries[loc]
		if !ok {
			e = &IndexEntry{}
			ix.entries[loc] = e
		}
		e.Matches++
		e.Works = append(e.Works, title)
	}
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

func (ix *Index) Entry(location string) (IndexEntry, bool) {
	e, ok := ix.entries[NormalizeLocation(location)]
	if !ok {
		return IndexEntry{}, false
	}
	return *e, true
}

// Save writes the index as a JSON object keyed by location.
func (ix *Index) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create index dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ix.entries); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return f.Close()
}

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	leadingThe = regexp.MustCompile(`(?i)^the\s+`)
	codeLike   = regexp.MustCompile(`^[A-Za-z]{2,3}$`)
)

// NormalizeLocation folds spelling variants of one location onto a single
// key: whitespace is collapsed, a leading "the" dropped, and short
// alphabetic codes upper-cased.
func NormalizeLocation(loc string) string {
	loc = strings.TrimSpace(spaceRun.ReplaceAllString(loc, " "))
	if loc == UnknownLocation {
		return loc
	}
	loc = leadingThe.ReplaceAllString(loc, "")
	if codeLike.MatchString(loc) {
		return strings.ToUpper(loc)
	}
	return loc
}
