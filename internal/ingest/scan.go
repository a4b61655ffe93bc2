// Package ingest discovers documents on the local filesystem.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
)

// File is one discovered document.
type File struct {
	Path    string
	Ext     string
	Size    int64
	HashHex string
	Err     string
}

// DirStats summarizes a scan.
type DirStats struct {
	Scanned    uint32
	Matched    uint32
	Failed     uint32
	Duplicates uint32
}

// Options controls Scan. A nil Exts means the allowed extensions.
type Options struct {
	Exts       map[string]struct{}
	SkipHidden bool
	Recursive  bool
	// Hash computes a sha256 per file and counts identical contents.
	Hash bool
}

// PDFOnly is the extension set for --pdf-only.
var PDFOnly = map[string]struct{}{"pdf": {}}

// Scan lists matching files under root sorted by path.
func Scan(ctx context.Context, root string, opts Options) ([]File, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, DirStats{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	if !st.IsDir() {
		return nil, DirStats{}, fmt.Errorf("%w: %s is not a directory", common.ErrInvalidInput, root)
	}

	var (
		files []File
		stats DirStats
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		stats.Scanned++
		if walkErr != nil {
			files = append(files, File{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !Matches(path, opts.Exts) {
			return nil
		}
		stats.Matched++

		f := File{Path: path, Ext: constants.NormalizeExt(filepath.Ext(path))}
		if info, err := d.Info(); err == nil {
			f.Size = info.Size()
		}
		if opts.Hash {
			sum, err := hashFile(path)
			if err != nil {
				f.Err = err.Error()
				stats.Failed++
			}
			f.HashHex = sum
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return files, stats, err
		}
		return files, stats, fmt.Errorf("walk: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	if opts.Hash {
		seen := map[string]struct{}{}
		for _, f := range files {
			if f.HashHex == "" {
				continue
			}
			if _, dup := seen[f.HashHex]; dup {
				stats.Duplicates++
				continue
			}
			seen[f.HashHex] = struct{}{}
		}
	}
	return files, stats, nil
}

// Matches reports whether path has one of exts, or an allowed extension when exts is nil.
func Matches(path string, exts map[string]struct{}) bool {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" {
		return false
	}
	if exts == nil {
		return constants.AllowedExt(ext)
	}
	_, ok := exts[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
