package record

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

var (
	ErrNotFound    = errors.New("record file not found")
	ErrInvalidJSON = errors.New("record file is not valid JSON")
	ErrNotArray    = errors.New("record file does not hold a JSON array")
	ErrEmpty       = errors.New("record file holds an empty array")
)

var prettyOptions = &pretty.Options{Indent: "  "}

// Load reads a JSON array file. Each element is returned as its raw JSON.
func Load(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, path)
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, path)
	}

	elems := root.Array()
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	col := make(Collection, 0, len(elems))
	for _, e := range elems {
		col = append(col, Record(e.Raw))
	}
	return col, nil
}

// Save writes the collection as a 2-space indented JSON array with non-ASCII
// text unescaped, replacing any existing file. The write is not atomic.
func Save(path string, col Collection) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range col {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(r.literal())
	}
	buf.WriteByte(']')

	out := pretty.PrettyOptions(buf.Bytes(), prettyOptions)
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}
