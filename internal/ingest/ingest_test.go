package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
)

func touch(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"), "same")
	touch(t, filepath.Join(root, "a.PNG"), "img")
	touch(t, filepath.Join(root, "c.pdf"), "same")
	touch(t, filepath.Join(root, "notes.txt"), "x")
	touch(t, filepath.Join(root, ".hidden.pdf"), "x")
	touch(t, filepath.Join(root, "sub", "d.pdf"), "x")

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"allowed flat", Options{SkipHidden: true}, []string{"a.PNG", "b.pdf", "c.pdf"}},
		{"pdf only", Options{Exts: PDFOnly, SkipHidden: true}, []string{"b.pdf", "c.pdf"}},
		{"recursive", Options{Exts: PDFOnly, SkipHidden: true, Recursive: true}, []string{"b.pdf", "c.pdf", "sub/d.pdf"}},
		{"hidden kept", Options{Exts: PDFOnly}, []string{".hidden.pdf", "b.pdf", "c.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, stats, err := Scan(context.Background(), root, tt.opts)
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if len(files) != len(tt.want) || int(stats.Matched) != len(tt.want) {
				t.Fatalf("files = %v, matched = %d", files, stats.Matched)
			}
			for i, f := range files {
				rel, _ := filepath.Rel(root, f.Path)
				if filepath.ToSlash(rel) != tt.want[i] {
					t.Errorf("files[%d] = %s, want %s", i, rel, tt.want[i])
				}
			}
		})
	}
}

func TestScanHashCountsDuplicates(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"), "same")
	touch(t, filepath.Join(root, "c.pdf"), "same")
	touch(t, filepath.Join(root, "d.pdf"), "other")

	files, stats, err := Scan(context.Background(), root, Options{Hash: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", stats.Duplicates)
	}
	if files[0].HashHex == "" || files[0].HashHex != files[1].HashHex || files[0].Size != 4 {
		t.Errorf("files = %+v", files)
	}
}

func TestScanBadRoot(t *testing.T) {
	for _, root := range []string{"", filepath.Join(t.TempDir(), "missing")} {
		if _, _, err := Scan(context.Background(), root, Options{}); !errors.Is(err, common.ErrInvalidInput) {
			t.Errorf("Scan(%q) err = %v", root, err)
		}
	}
}

func TestWatcherEmitsNewFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ev, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true}, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]bool{
		filepath.Join(root, "existing.pdf"): false,
		filepath.Join(root, "new.pdf"):      false,
	}
	got := 0
	timeout := time.After(5 * time.Second)
	for got < len(want) {
		select {
		case p := <-ev:
			if seen, ok := want[p]; ok && !seen {
				want[p] = true
				got++
				if got == 1 {
					touch(t, filepath.Join(root, "ignored.txt"), "x")
					touch(t, filepath.Join(root, "new.pdf"), "x")
				}
			}
		case <-timeout:
			t.Fatalf("timed out; seen = %v", want)
		}
	}
}
