// Package extractor turns stored source documents into the plaintext the
// pipeline prompts against. Format is picked by file extension first, mime
// type second; anything unrecognized is treated as plaintext.
package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/core/ports"
)

type Resolver struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Resolver {
	return &Resolver{storage: storage}
}

func (r *Resolver) Resolve(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := r.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open document %s: %w", doc.ID, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", doc.ID, err)
	}

	switch kind(doc.Filename, doc.MimeType) {
	case kindPDF:
		return extractPDF(raw)
	case kindXLSX:
		return extractXLSX(raw)
	default:
		return extractPlaintext(raw)
	}
}

type documentKind int

const (
	kindPlaintext documentKind = iota
	kindPDF
	kindXLSX
)

func kind(filename, mimeType string) documentKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return kindPDF
	case ".xlsx", ".xlsm":
		return kindXLSX
	}
	switch mimeType {
	case "application/pdf":
		return kindPDF
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return kindXLSX
	}
	return kindPlaintext
}

func extractPlaintext(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("extract plaintext: content is not valid UTF-8")
	}
	return string(raw), nil
}

