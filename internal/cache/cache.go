// Package cache implements the on-disk page cache layout and the mtime-based
// freshness oracle that decides whether a rendered artifact can be reused.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PathForSlug maps a slug to its cache file: the slug's directory structure
// under the cache root, filename "<basename>.html".
func PathForSlug(cacheRoot, slug string) string {
	dir, base := filepath.Split(filepath.FromSlash(slug))
	if base == "" {
		base = slug
	}
	return filepath.Join(cacheRoot, dir, base+".html")
}

// EnsureRoot creates the cache root if it does not exist.
func EnsureRoot(cacheRoot string) error {
	return os.MkdirAll(cacheRoot, 0o750)
}

// Fresh reports whether the cached artifact may be reused: both files must
// exist and the cache mtime must be >= the source mtime and >= every
// dependency timestamp. Equal timestamps count as fresh.
func Fresh(sourcePath, cachePath string, deps []time.Time) (bool, error) {
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat source %s: %w", sourcePath, err)
	}
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat cache %s: %w", cachePath, err)
	}

	cacheTime := cacheInfo.ModTime()
	if cacheTime.Before(srcInfo.ModTime()) {
		return false, nil
	}
	for _, dep := range deps {
		if cacheTime.Before(dep) {
			return false, nil
		}
	}
	return true, nil
}

// Write persists rendered HTML, creating parent directories as needed.
// Writes are whole-file; concurrent writers to the same slug produce
// identical content for a given source, so the race is harmless.
func Write(path, html string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o640); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// BinaryMtime returns the modified time of the running executable, so a
// redeployed binary invalidates every cached page. Zero time when unknown.
func BinaryMtime() time.Time {
	exe, err := os.Executable()
	if err != nil {
		return time.Time{}
	}
	info, err := os.Stat(exe)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// FileMtime returns a file's modified time, zero when missing.
func FileMtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// NewestMtimeWithExt walks dir and returns the newest mtime among files with
// the given extension (without the dot). Missing directories yield zero time.
func NewestMtimeWithExt(dir, ext string) time.Time {
	var newest time.Time
	suffix := "." + ext
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, suffix) {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}

// UpdateHashMarker writes (or refreshes) a hidden marker file holding the
// provided hash, returning the marker's mtime. The marker converts a content
// hash into a synthetic timestamp usable as a cache dependency.
//
// Read-if-unchanged/write-if-changed: concurrent writers for the same hash
// write identical bytes, so no external locking is needed.
func UpdateHashMarker(cacheRoot, name, hash string) (time.Time, error) {
	marker := filepath.Join(cacheRoot, "."+name+"_hash")

	if existing, err := os.ReadFile(marker); err == nil && strings.TrimSpace(string(existing)) == hash {
		info, statErr := os.Stat(marker)
		if statErr != nil {
			return time.Time{}, fmt.Errorf("stat hash marker %s: %w", marker, statErr)
		}
		return info.ModTime(), nil
	}

	if err := os.MkdirAll(filepath.Dir(marker), 0o750); err != nil {
		return time.Time{}, fmt.Errorf("create marker directory: %w", err)
	}
	if err := os.WriteFile(marker, []byte(hash), 0o640); err != nil {
		return time.Time{}, fmt.Errorf("write hash marker %s: %w", marker, err)
	}

	info, err := os.Stat(marker)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat hash marker %s: %w", marker, err)
	}
	return info.ModTime(), nil
}
