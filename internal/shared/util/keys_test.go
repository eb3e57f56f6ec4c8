package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHashUserKey(t *testing.T) {
	got := HashUserKey("user-1")
	if got != HashUserKey("user-1") {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
}

func TestObjectKey(t *testing.T) {
	got := ObjectKey("/reports/", "user-1", "a.md")
	want := "reports/" + HashUserKey("user-1") + "/a.md"
	if got != want {
		t.Fatalf("ObjectKey = %q, want %q", got, want)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"disclosure.pdf":       "disclosure.pdf",
		" dir/sub\\交底书.docx ": "dir_sub_交底书.docx",
		"a\tb\x00.txt":         "ab.txt",
	}
	for in, want := range cases {
		got, err := SanitizeFileName(in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
	for _, bad := range []string{"", "   ", "../etc/passwd", "."} {
		if _, err := SanitizeFileName(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSanitizeFileNameKeepsExtensionWhenTruncating(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("专", 200) + ".pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if utf8.RuneCountInString(got) != maxFileNameRunes {
		t.Fatalf("expected %d runes, got %d", maxFileNameRunes, utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("extension lost: %q", got)
	}
}
