package compress

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCompressible(t *testing.T) {
	testCases := []struct {
		contentType string
		want        bool
	}{
		{contentType: "text/plain", want: true},
		{contentType: "text/plain; charset=utf-8", want: true},
		{contentType: "text/html", want: true},
		{contentType: "text/css; charset=utf-8", want: true},
		{contentType: "text/csv", want: true},
		{contentType: "text/calendar", want: true},
		{contentType: "text/javascript; charset=utf-8", want: true},
		{contentType: "application/json", want: true},
		{contentType: "application/xml", want: true},
		{contentType: "image/svg+xml", want: true},
		{contentType: "image/png", want: false},
		{contentType: "application/gzip", want: false},
		{contentType: "application/octet-stream", want: false},
		{contentType: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.contentType, func(t *testing.T) {
			if got := Compressible(tc.contentType); got != tc.want {
				t.Errorf("Compressible(%q) = %v, want %v", tc.contentType, got, tc.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	dir := t.TempDir()

	files := map[string][]byte{
		"style.css":  []byte("body { color: red; }"),
		"page.html":  []byte("<!DOCTYPE html><html></html>"),
		"noext":      []byte("plain words only\n"),
		"image.none": {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0},
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	testCases := []struct {
		name             string
		wantCompressible bool
	}{
		{name: "style.css", wantCompressible: true},
		{name: "page.html", wantCompressible: true},
		{name: "noext", wantCompressible: true},
		{name: "image.none", wantCompressible: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ct := ContentType(filepath.Join(dir, tc.name))
			if ct == "" {
				t.Fatal("メディアタイプが空です")
			}
			if got := Compressible(ct); got != tc.wantCompressible {
				t.Errorf("%s (%s): Compressible = %v, want %v", tc.name, ct, got, tc.wantCompressible)
			}
		})
	}

	if got := ContentType(filepath.Join(dir, "missing")); got != "application/octet-stream" {
		t.Errorf("存在しないファイル: got %q", got)
	}
}
