// Package parser reads and writes the note frontmatter format: a `---`
// delimited block of `key: value` lines followed by a free-text body.
package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
)

const delim = "---"

// noteFormat splits on `---` lines and decodes the block as key: value lines.
// YAML is deliberately not used: values such as "orig_filename: a: b.png"
// must survive verbatim.
var noteFormat = frontmatter.NewFormat(delim, delim, unmarshalLines)

// Field is one frontmatter entry.
type Field struct {
	Key   string
	Value string
}

// Result holds the output of parsing a note file.
type Result struct {
	// Fields maps every key found in the frontmatter to its value. Unknown
	// keys are kept as opaque strings.
	Fields map[string]string
	// Keys lists the frontmatter keys in file order.
	Keys  []string
	Body  string
	Title string
}

// Get returns the value for key, or fallback when the key is missing or empty.
func (r *Result) Get(key, fallback string) string {
	if v, ok := r.Fields[key]; ok && v != "" {
		return v
	}
	return fallback
}

type lines struct {
	fields map[string]string
	keys   []string
}

// Parse extracts frontmatter fields, body and a display title from raw note bytes.
// Content without a frontmatter block is returned entirely as body. The final
// line break written by Compose is not part of the body.
func Parse(data []byte) (*Result, error) {
	fm := &lines{fields: map[string]string{}}
	body, err := frontmatter.Parse(bytes.NewReader(data), fm, noteFormat)
	if err != nil {
		// Unterminated block: treat everything as body.
		fm = &lines{fields: map[string]string{}}
		body = data
	}
	text := strings.TrimLeft(string(body), "\r\n")
	text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")

	return &Result{
		Fields: fm.fields,
		Keys:   fm.keys,
		Body:   text,
		Title:  deriveTitle(fm.fields, text),
	}, nil
}

func unmarshalLines(data []byte, v any) error {
	dst, ok := v.(*lines)
	if !ok {
		return fmt.Errorf("parser: unexpected frontmatter target %T", v)
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, value, found := strings.Cut(sc.Text(), ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := dst.fields[key]; !dup {
			dst.keys = append(dst.keys, key)
		}
		dst.fields[key] = strings.TrimSpace(value)
	}
	return sc.Err()
}

// Compose serializes fields in the given order, a blank line, then body.
// Line breaks inside values are flattened so every field stays on one line.
func Compose(fields []Field, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	for _, f := range fields {
		buf.WriteString(f.Key)
		buf.WriteString(": ")
		buf.WriteString(flatten(f.Value))
		buf.WriteByte('\n')
	}
	buf.WriteString(delim + "\n\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func flatten(v string) string {
	v = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(v)
	return strings.TrimSpace(v)
}

// deriveTitle returns the "title" field if present, otherwise the first
// H1 heading, otherwise the first non-empty line truncated to 80 runes.
func deriveTitle(fields map[string]string, body string) string {
	if t := fields["title"]; t != "" {
		return t
	}
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			r := []rune(trimmed)
			if len(r) > 80 {
				r = r[:80]
			}
			return string(r)
		}
	}
	return ""
}
