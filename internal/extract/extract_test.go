package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"patent-backend/internal/shared/storage/object/local"
)

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString("<w:p><w:r><w:t>" + p + "</w:t></w:r></w:p>")
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextFromBytesPlainText(t *testing.T) {
	got, err := TextFromBytes(context.Background(), []byte("  一种固态电池隔膜 \r\n\r\n\r\n 陶瓷层  "), "text/plain; charset=utf-8", "a.txt")
	if err != nil {
		t.Fatalf("TextFromBytes: %v", err)
	}
	if got != "一种固态电池隔膜\n\n陶瓷层" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestTextFromBytesDOCXFromGenericMime(t *testing.T) {
	data := buildDOCX(t, "Ceramic separator", "Lithium doping")
	got, err := TextFromBytes(context.Background(), data, "application/zip", "disclosure.docx")
	if err != nil {
		t.Fatalf("TextFromBytes: %v", err)
	}
	if got != "Ceramic separator\nLithium doping" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestTextFromBytesRejectsPlainZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = TextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestTextFromBytesEmpty(t *testing.T) {
	if _, err := TextFromBytes(context.Background(), []byte(" \n "), "text/plain", ""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestTextFromBytesInvalidPDF(t *testing.T) {
	if _, err := TextFromBytes(context.Background(), []byte("%PDF-1.4 garbage"), "", "x.pdf"); err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestDetectMimeType(t *testing.T) {
	cases := []struct {
		mime, name string
		data       []byte
		want       string
	}{
		{"application/pdf", "x", nil, MimePDF},
		{"", "x.bin", []byte("%PDF-1.7"), MimePDF},
		{"application/octet-stream", "notes.md", []byte("# hi"), MimeMarkdown},
		{"", "notes.txt", []byte("hi"), MimeText},
		{"image/png", "x.png", nil, "image/png"},
		{"", "blob", []byte{0x00}, "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := DetectMimeType(tc.mime, tc.name, tc.data); got != tc.want {
			t.Fatalf("DetectMimeType(%q, %q) = %q, want %q", tc.mime, tc.name, got, tc.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("专利分析", 2); got != "专利" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestFromStoreSavesExtractedText(t *testing.T) {
	ctx := context.Background()
	store := local.New(t.TempDir())
	key := "disclosures/u/1-notes.txt"
	if _, err := store.Put(ctx, key, "text/plain", strings.NewReader("Separator layer"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	text, err := FromStore(ctx, store, key, "text/plain", "notes.txt")
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if text != "Separator layer" {
		t.Fatalf("unexpected text: %q", text)
	}

	rc, err := store.Open(ctx, key+".extracted.txt")
	if err != nil {
		t.Fatalf("Open extracted: %v", err)
	}
	defer rc.Close()
	saved, _ := io.ReadAll(rc)
	if string(saved) != "Separator layer" {
		t.Fatalf("unexpected saved text: %q", saved)
	}
}
