// Package record loads and stores JSON arrays of work and grant records.
//
// Records are kept as raw JSON so that field order survives a load/save
// cycle. On save, escaped strings are written back as literal UTF-8.
package record

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// LocationField is the key added to every enriched record.
const LocationField = "location"

// Record is one JSON object from a collection file.
type Record []byte

// Collection is an ordered list of records, as loaded from one file.
type Collection []Record

// Field returns the string value of key, or "" when the key is missing or
// does not hold a string.
func (r Record) Field(key string) string {
	res := gjson.GetBytes(r, escapePath(key))
	if res.Type != gjson.String {
		return ""
	}
	return res.Str
}

// Title returns the trimmed value of the title-bearing field.
func (r Record) Title(field string) string {
	return strings.TrimSpace(r.Field(field))
}

func (r Record) Has(key string) bool {
	return gjson.GetBytes(r, escapePath(key)).Exists()
}

// WithLocation returns a copy of r with the location field set. An existing
// location is replaced in place; otherwise the field is appended last.
func (r Record) WithLocation(location string) (Record, error) {
	out, err := sjson.SetRawBytes(append(Record(nil), r...), LocationField, encodeString(location))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// literal re-encodes r with every string decoded, so \u escapes become the
// characters they stand for. Key order and duplicate keys are kept.
func (r Record) literal() []byte {
	var buf bytes.Buffer
	writeLiteral(&buf, gjson.ParseBytes(r))
	return buf.Bytes()
}

func writeLiteral(buf *bytes.Buffer, v gjson.Result) {
	switch {
	case v.IsObject():
		buf.WriteByte('{')
		first := true
		v.ForEach(func(key, value gjson.Result) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.Write(encodeString(key.Str))
			buf.WriteByte(':')
			writeLiteral(buf, value)
			return true
		})
		buf.WriteByte('}')
	case v.IsArray():
		buf.WriteByte('[')
		first := true
		v.ForEach(func(_, value gjson.Result) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			writeLiteral(buf, value)
			return true
		})
		buf.WriteByte(']')
	case v.Type == gjson.String:
		buf.Write(encodeString(v.Str))
	default:
		buf.WriteString(v.Raw)
	}
}

// encodeString quotes s as a JSON string without HTML escaping.
func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // a string always encodes
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`!`, `\!`,
	`=`, `\=`,
	`<`, `\<`,
	`>`, `\>`,
	`%`, `\%`,
)

// escapePath turns a plain object key into a gjson path matching only that key.
func escapePath(key string) string {
	return pathEscaper.Replace(key)
}
