package extractor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/auditstack/docuquery/internal/core/domain"
)

type storageStub struct {
	objects map[string][]byte
}

func (s *storageStub) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = raw
	return nil
}

func (s *storageStub) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(strings.NewReader(string(raw))), nil
}

func TestKindDispatch(t *testing.T) {
	cases := []struct {
		filename string
		mimeType string
		want     documentKind
	}{
		{"report.PDF", "", kindPDF},
		{"tb.xlsx", "", kindXLSX},
		{"macro.xlsm", "", kindXLSX},
		{"upload.bin", "application/pdf", kindPDF},
		{"upload.bin", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", kindXLSX},
		{"notes.txt", "text/plain", kindPlaintext},
		{"data.csv", "", kindPlaintext},
		// Extension wins over a contradictory mime type.
		{"tb.xlsx", "application/pdf", kindXLSX},
	}
	for _, tc := range cases {
		if got := kind(tc.filename, tc.mimeType); got != tc.want {
			t.Fatalf("kind(%q, %q) = %d, want %d", tc.filename, tc.mimeType, got, tc.want)
		}
	}
}

func TestResolvePlaintext(t *testing.T) {
	storage := &storageStub{objects: map[string][]byte{
		"doc-1_tb.csv": []byte("Account,Debit,Credit\n1000,Cash,5000"),
	}}
	resolver := New(storage)

	text, err := resolver.Resolve(context.Background(), &domain.Document{
		ID:          "doc-1",
		Filename:    "tb.csv",
		StoragePath: "doc-1_tb.csv",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if text != "Account,Debit,Credit\n1000,Cash,5000" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestResolveRejectsBinaryAsPlaintext(t *testing.T) {
	storage := &storageStub{objects: map[string][]byte{
		"doc-1_blob.bin": {0xff, 0xfe, 0x00, 0x80},
	}}
	resolver := New(storage)

	_, err := resolver.Resolve(context.Background(), &domain.Document{
		ID:          "doc-1",
		Filename:    "blob.bin",
		StoragePath: "doc-1_blob.bin",
	})
	if err == nil || !strings.Contains(err.Error(), "not valid UTF-8") {
		t.Fatalf("expected utf-8 error, got %v", err)
	}
}

func TestResolveMissingObject(t *testing.T) {
	resolver := New(&storageStub{})

	_, err := resolver.Resolve(context.Background(), &domain.Document{
		ID:          "doc-1",
		Filename:    "tb.csv",
		StoragePath: "gone",
	})
	if err == nil {
		t.Fatalf("expected error for missing object")
	}
}

func TestResolveXLSX(t *testing.T) {
	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	rows := [][]any{
		{"Account", "Debit", "Credit"},
		{"1000 Cash", 5000, ""},
		{"2000 Payables", "", 5000},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := workbook.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	storage := &storageStub{objects: map[string][]byte{"doc-1_tb.xlsx": buf.Bytes()}}
	resolver := New(storage)

	text, err := resolver.Resolve(context.Background(), &domain.Document{
		ID:          "doc-1",
		Filename:    "tb.xlsx",
		StoragePath: "doc-1_tb.xlsx",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), text)
	}
	// The header row must come out first; head-N prompts depend on it.
	if lines[0] != "Account,Debit,Credit" {
		t.Fatalf("unexpected header line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1000 Cash,5000") {
		t.Fatalf("unexpected data line %q", lines[1])
	}
}

func TestResolveCorruptXLSX(t *testing.T) {
	storage := &storageStub{objects: map[string][]byte{
		"doc-1_tb.xlsx": []byte("this is not a zip archive"),
	}}
	resolver := New(storage)

	_, err := resolver.Resolve(context.Background(), &domain.Document{
		ID:          "doc-1",
		Filename:    "tb.xlsx",
		StoragePath: "doc-1_tb.xlsx",
	})
	if err == nil {
		t.Fatalf("expected error for corrupt workbook")
	}
}
