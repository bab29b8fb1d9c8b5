// Package fileref adapts stored document paths and fresh uploads to the
// models.FileRef union.
package fileref

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"admissions-portal/internal/models"
)

var ErrNothingToPreview = errors.New("NOTHING_TO_PREVIEW")

// TransparentPixel is a 1x1 transparent GIF, the body served for a remote
// placeholder when a collaborator insists on concrete bytes.
var TransparentPixel = mustDecode("R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Placeholder turns a document path the backend returned into a Remote
// reference. Blank paths give an empty field, not a removed one.
func Placeholder(p, baseURL string) models.FileRef {
	p = strings.TrimSpace(p)
	if p == "" {
		return models.EmptyFile()
	}
	return models.RemoteFile(Normalize(p, baseURL))
}

// Normalize makes a relative document path absolute against baseURL.
// Absolute URLs and paths with no base are returned unchanged.
func Normalize(p, baseURL string) string {
	p = strings.TrimSpace(p)
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return p
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return p
	}
	base.Path = path.Join(base.Path, strings.TrimPrefix(p, "/"))
	return base.String()
}

// IsUpload reports whether ref must be transmitted.
func IsUpload(ref models.FileRef) bool {
	return ref.IsPending()
}

// OriginalPath is the stored location of a remote reference, or "".
func OriginalPath(ref models.FileRef) string {
	if ref.IsRemote() {
		return ref.URL
	}
	return ""
}

// Body returns the bytes to hand a collaborator for ref: the upload itself,
// or TransparentPixel for a remote placeholder.
func Body(ref models.FileRef) []byte {
	switch ref.Kind {
	case models.FilePending:
		return ref.Data
	case models.FileRemote:
		return TransparentPixel
	}
	return nil
}

// Previewer hands out viewable URLs for document fields. Local copies of
// pending uploads live in a private directory until Close.
type Previewer struct {
	mu    sync.Mutex
	dir   string
	count int
}

func NewPreviewer() *Previewer {
	return &Previewer{}
}

// Preview returns a URL for ref. Remote references open their stored URL;
// pending uploads are written out once per call.
func (p *Previewer) Preview(ref models.FileRef) (string, error) {
	switch ref.Kind {
	case models.FileRemote:
		return ref.URL, nil
	case models.FilePending:
		return p.writeBlob(ref)
	}
	return "", ErrNothingToPreview
}

func (p *Previewer) writeBlob(ref models.FileRef) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dir == "" {
		dir, err := os.MkdirTemp("", "admissions-preview-")
		if err != nil {
			return "", fmt.Errorf("failed to create preview dir: %w", err)
		}
		p.dir = dir
	}

	p.count++
	name := fmt.Sprintf("%03d-%s", p.count, filepath.Base(ref.Name))
	full := filepath.Join(p.dir, name)
	if err := os.WriteFile(full, ref.Data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write preview: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String(), nil
}

// Allocated is the number of previews written so far.
func (p *Previewer) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Close releases every preview written by p.
func (p *Previewer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dir == "" {
		return nil
	}
	err := os.RemoveAll(p.dir)
	p.dir = ""
	return err
}
