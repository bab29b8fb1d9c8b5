// Package wire flattens drafts into the backend's multipart field contract
// and rebuilds drafts from stored records.
package wire

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"admissions-portal/internal/models"
)

type Field struct {
	Name  string
	Value string
}

type FilePart struct {
	Field string
	File  models.FileRef
}

// Payload is an ordered multipart body: text fields first, then files.
type Payload struct {
	Fields []Field
	Files  []FilePart
}

func (p *Payload) add(name, value string) {
	p.Fields = append(p.Fields, Field{Name: name, Value: value})
}

// addText appends value unless it is blank.
func (p *Payload) addText(name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	p.add(name, strings.TrimSpace(value))
}

// addFile appends ref only when it is a fresh upload.
func (p *Payload) addFile(name string, ref models.FileRef) {
	if !ref.IsPending() {
		return
	}
	p.Files = append(p.Files, FilePart{Field: name, File: ref})
}

// Get returns the first text value named key.
func (p *Payload) Get(key string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == key {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present as a text field or a file part.
func (p *Payload) Has(key string) bool {
	if _, ok := p.Get(key); ok {
		return true
	}
	for _, f := range p.Files {
		if f.Field == key {
			return true
		}
	}
	return false
}

// FilesFor returns every file part named key.
func (p *Payload) FilesFor(key string) []models.FileRef {
	var out []models.FileRef
	for _, f := range p.Files {
		if f.Field == key {
			out = append(out, f.File)
		}
	}
	return out
}

// Keys lists field and file names in payload order.
func (p *Payload) Keys() []string {
	keys := make([]string, 0, len(p.Fields)+len(p.Files))
	for _, f := range p.Fields {
		keys = append(keys, f.Name)
	}
	for _, f := range p.Files {
		keys = append(keys, f.Field)
	}
	return keys
}

// Values returns the text fields as a map, for job variables and logs.
func (p *Payload) Values() map[string]string {
	out := make(map[string]string, len(p.Fields))
	for _, f := range p.Fields {
		if _, ok := out[f.Name]; !ok {
			out[f.Name] = f.Value
		}
	}
	return out
}

// WriteMultipart writes p as multipart/form-data and returns the content
// type carrying the boundary.
func (p *Payload) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)

	for _, f := range p.Fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	for _, f := range p.Files {
		ct := f.File.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.File.Name)))
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("failed to create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.File.Data); err != nil {
			return "", fmt.Errorf("failed to write file %s: %w", f.Field, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
