// Package fsutil provides the file selection helpers shared by leaf modules:
// glob expansion with `**` support, static-base relative paths, and the
// stale-output filter behind incremental tasks.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Match is a regular file selected by a glob pattern.
type Match struct {
	// Path is the file path as found on disk.
	Path string
	// Rel is Path relative to the static base of the pattern that matched it,
	// so `src/img/**/*.png` maps `src/img/a/b.png` to `a/b.png`.
	Rel     string
	ModTime time.Time
}

// StaticBase returns the leading directory of pattern that contains no glob
// metacharacters. A pattern without metacharacters has its parent directory
// as base.
func StaticBase(pattern string) string {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(filepath.Clean(pattern)))
	return filepath.FromSlash(base)
}

// Glob expands patterns into the regular files they match. Results are sorted
// by path and a file matched by several patterns is reported once, relative
// to the first pattern that matched it.
func Glob(patterns []string) ([]Match, error) {
	var out []Match
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		base := StaticBase(pattern)
		for _, p := range paths {
			if _, ok := seen[p]; ok {
				continue
			}
			info, err := os.Stat(p)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				continue
			}
			rel, err := filepath.Rel(base, p)
			if err != nil {
				return nil, err
			}
			seen[p] = struct{}{}
			out = append(out, Match{Path: p, Rel: rel, ModTime: info.ModTime()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Paths expands patterns into every existing path they match, directories
// included. Nested matches under an already selected directory are dropped.
func Paths(patterns []string) ([]string, error) {
	var all []string
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		paths, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		all = append(all, paths...)
	}
	sort.Strings(all)

	var out []string
	for _, p := range all {
		if !coveredBy(out, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// coveredBy reports whether p equals or lies under one of the selected paths.
func coveredBy(selected []string, p string) bool {
	for _, s := range selected {
		if p == s || strings.HasPrefix(p, s+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Stale keeps the matches that changed after since or whose output, as
// named by target, does not exist. A zero since keeps everything.
func Stale(matches []Match, since time.Time, target func(Match) string) []Match {
	if since.IsZero() {
		return matches
	}
	var out []Match
	for _, m := range matches {
		if m.ModTime.After(since) {
			out = append(out, m)
			continue
		}
		if _, err := os.Stat(target(m)); err != nil {
			out = append(out, m)
		}
	}
	return out
}

// Target maps a match into dest, keeping its path relative to the pattern base.
func Target(dest string, m Match) string {
	return filepath.Join(dest, m.Rel)
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
