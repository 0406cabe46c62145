package objectkey

import (
	"errors"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"docs/a.txt", "docs/a.txt", nil},
		{"/docs/a.txt", "docs/a.txt", nil},
		{"  spaced.txt ", "spaced.txt", nil},
		{"", "", ErrEmpty},
		{"   ", "", ErrEmpty},
		{"/", "", ErrEmpty},
		{"a/../b", "", ErrTraversal},
		{"../etc/passwd", "", ErrTraversal},
		{"a..b/c", "a..b/c", nil},
	}
	for _, tt := range tests {
		got, err := Clean(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Clean(%q) err = %v, want %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("", "a.txt"); got != "a.txt" {
		t.Errorf("Join = %q, want a.txt", got)
	}
	if got := Join("avatars", "a.txt"); got != "avatars/a.txt" {
		t.Errorf("Join = %q, want avatars/a.txt", got)
	}
	if got := Join("avatars/", "a.txt"); got != "avatars/a.txt" {
		t.Errorf("Join = %q, want avatars/a.txt", got)
	}
}

func TestEscapePath(t *testing.T) {
	if got := EscapePath("docs/summer report.txt"); got != "docs/summer%20report.txt" {
		t.Errorf("EscapePath = %q", got)
	}
	if got := EscapePath("plain/key"); got != "plain/key" {
		t.Errorf("EscapePath = %q, want slashes preserved", got)
	}
}
