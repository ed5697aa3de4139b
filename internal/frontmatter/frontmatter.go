// Package frontmatter reads and writes markdown documents that open with a
// YAML block between `---` fences.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const fence = "---\n"

var (
	// ErrMissing indicates the document did not start with a YAML fence.
	ErrMissing = errors.New("frontmatter: missing")
	// ErrMalformed indicates the YAML block was not closed or could not be parsed.
	ErrMalformed = errors.New("frontmatter: malformed")
)

// Header is the metadata block of a generated blog document. Field order is
// the order written to disk.
type Header struct {
	Title   string    `yaml:"title"`
	Date    time.Time `yaml:"date"`
	Summary string    `yaml:"summary"`
	Tags    []string  `yaml:"tags"`
	Author  string    `yaml:"author"`
}

// Render frames header and body as "---\n" + yaml + "---\n" + body.
func Render(header any, body []byte) ([]byte, error) {
	var meta bytes.Buffer
	enc := yaml.NewEncoder(&meta)
	enc.SetIndent(2)
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(fence)*2 + meta.Len() + len(body))
	buf.WriteString(fence)
	buf.Write(meta.Bytes())
	buf.WriteString(fence)
	buf.Write(body)
	return buf.Bytes(), nil
}

// Split separates the YAML block from the body without decoding it.
func Split(content []byte) (meta, body []byte, err error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte(fence)) {
		return nil, nil, ErrMissing
	}
	rest := normalized[len(fence):]
	if bytes.HasPrefix(rest, []byte(fence)) {
		return nil, rest[len(fence):], nil
	}
	parts := bytes.SplitN(rest, []byte("\n"+fence), 2)
	if len(parts) < 2 {
		return nil, nil, ErrMalformed
	}
	return parts[0], parts[1], nil
}

// Parse decodes the YAML block into out and returns the body.
func Parse(content []byte, out any) ([]byte, error) {
	meta, body, err := Split(content)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(meta, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return body, nil
}
