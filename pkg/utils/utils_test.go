package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseBPMFromName(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"darude-sandstorm_136.wav", 136, false},
		{"/music/intro_124.5.mp3", 124.5, false},
		{"no-tempo.wav", 0, true},
		{"trailing_.wav", 0, true},
		{"word_fast.wav", 0, true},
		{"neg_-120.wav", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseBPMFromName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBPMFromName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBPMFromName(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("/music/intro_124.5.wav"); got != "intro" {
		t.Errorf("BaseName = %q, want intro", got)
	}
	if got := BaseName("live_set"); got != "live_set" {
		t.Errorf("BaseName = %q, want live_set", got)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "grid.json")

	err := WriteFileAtomic(path, func(w *os.File) error {
		_, err := io.WriteString(w, `{"bpm":120}`)
		return err
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if string(data) != `{"bpm":120}` {
		t.Errorf("unexpected contents %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the final file, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicKeepsOldFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.json")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(w *os.File) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Errorf("old file was clobbered: %q", data)
	}
}

func TestTempPathIsUniqueSibling(t *testing.T) {
	a := TempPath("/cache/song_120.wav")
	b := TempPath("/cache/song_120.wav")
	if a == b {
		t.Error("temp paths should differ")
	}
	if filepath.Dir(a) != "/cache" || !strings.HasPrefix(filepath.Base(a), ".song_120.wav.") {
		t.Errorf("unexpected temp path %q", a)
	}
}

func TestTrackNameKeepsFractionalBPM(t *testing.T) {
	tests := map[string]string{
		"/music/intro_124.5.wav": "intro_124.5",
		"intro_124.5":            "intro_124.5",
		"outro_128.mp3":          "outro_128",
		"plain":                  "plain",
	}
	for in, want := range tests {
		if got := TrackName(in); got != want {
			t.Errorf("TrackName(%q) = %q, want %q", in, got, want)
		}
	}
}
