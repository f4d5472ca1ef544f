// Package document loads the source document served by docqa from a
// fsutil.FileStore. Plain text is used as is; PDF files have their text
// layer extracted.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docqa/src/core/rag"
	"docqa/src/fsutil"
	"docqa/src/log"
)

var ErrNotText = errors.New("document is not valid UTF-8 text")

// Load reads the document at path from store.
func Load(ctx context.Context, store fsutil.FileStore, path string) (rag.Document, error) {
	info, err := store.Stat(ctx, path)
	if err != nil {
		return rag.Document{}, fmt.Errorf("failed to stat document: %w", err)
	}

	data, err := store.ReadFile(ctx, path)
	if err != nil {
		return rag.Document{}, fmt.Errorf("failed to read document: %w", err)
	}

	var content string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		content, err = pdfText(data)
		if err != nil {
			return rag.Document{}, fmt.Errorf("failed to extract pdf text: %w", err)
		}
	default:
		if !utf8.Valid(data) {
			return rag.Document{}, fmt.Errorf("%w: %s", ErrNotText, path)
		}
		content = string(data)
	}

	log.Info("document loaded", "name", info.Name, "bytes", info.Size, "runes", utf8.RuneCountInString(content))
	return rag.Document{Name: info.Name, Content: content}, nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	text, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, text); err != nil {
		return "", err
	}
	return buf.String(), nil
}
