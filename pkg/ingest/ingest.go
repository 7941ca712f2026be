// Package ingest loads documents and optional images from disk.
package ingest

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dan-solli/dialectic/pkg/llm"
)

// MaxImageBytes bounds inline image attachments.
const MaxImageBytes = 20 * 1024 * 1024

var (
	// ErrBinaryDocument is returned for documents that are not UTF-8 text.
	ErrBinaryDocument = errors.New("document is not UTF-8 text")
	// ErrNotImage is returned when an image file does not sniff as an image.
	ErrNotImage = errors.New("file is not an image")
)

// Document is a text to analyze, with an optional image sent in the global
// phase.
type Document struct {
	FileName string
	Content  string
	Image    *llm.Image
}

// Hash returns the content identity of the document text.
func (d Document) Hash() string {
	return Hash(d.Content)
}

// Hash returns the hex SHA-256 of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

// LoadFile reads a UTF-8 text document. The file name is the base name of
// path.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	if !utf8.Valid(data) {
		return Document{}, fmt.Errorf("%s: %w", path, ErrBinaryDocument)
	}

	// Strip a UTF-8 BOM so it does not count towards the first chunk
	text := strings.TrimPrefix(string(data), "\ufeff")

	return Document{
		FileName: filepath.Base(path),
		Content:  text,
	}, nil
}

// LoadImage reads an image file and detects its MIME type from content.
func LoadImage(path string) (*llm.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > MaxImageBytes {
		return nil, fmt.Errorf("image %s is %d bytes, limit is %d", path, info.Size(), MaxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	mimeType := http.DetectContentType(data[:min(512, len(data))])
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s (%s): %w", path, mimeType, ErrNotImage)
	}

	return &llm.Image{Data: data, MIMEType: mimeType}, nil
}

// Load reads a document and, if imagePath is not empty, its image.
func Load(docPath, imagePath string) (Document, error) {
	doc, err := LoadFile(docPath)
	if err != nil {
		return Document{}, err
	}
	if imagePath != "" {
		img, err := LoadImage(imagePath)
		if err != nil {
			return Document{}, err
		}
		doc.Image = img
	}
	return doc, nil
}
