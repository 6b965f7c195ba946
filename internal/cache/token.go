package cache

import "time"

// Token is an opaque cache dependency. Each token resolves to a timestamp
// that must not exceed the cached artifact's mtime for the cache to be fresh.
// Tokens are backed either by real file mtimes or by content hashes turned
// into marker-file mtimes, so both kinds compare uniformly.
type Token interface {
	// Name identifies the dependency in logs.
	Name() string
	// Resolve returns the dependency's effective timestamp. Implementations
	// return zero time (never invalidating) when the dependency is absent.
	Resolve() (time.Time, error)
}

type fileToken struct {
	name string
	path string
}

// FileToken tracks a single file's mtime (e.g. the site config file).
func FileToken(name, path string) Token { return fileToken{name: name, path: path} }

func (t fileToken) Name() string { return t.name }

func (t fileToken) Resolve() (time.Time, error) {
	if t.path == "" {
		return time.Time{}, nil
	}
	return FileMtime(t.path), nil
}

type dirToken struct {
	name string
	dir  string
	ext  string
}

// DirToken tracks the newest mtime among files with the extension under dir
// (e.g. the stylesheet tree).
func DirToken(name, dir, ext string) Token { return dirToken{name: name, dir: dir, ext: ext} }

func (t dirToken) Name() string { return t.name }

func (t dirToken) Resolve() (time.Time, error) {
	return NewestMtimeWithExt(t.dir, t.ext), nil
}

type binaryToken struct{}

// BinaryToken tracks the running executable's build time.
func BinaryToken() Token { return binaryToken{} }

func (binaryToken) Name() string { return "binary" }

func (binaryToken) Resolve() (time.Time, error) { return BinaryMtime(), nil }

type hashToken struct {
	name      string
	cacheRoot string
	hash      func() string
}

// HashToken tracks a content hash (e.g. the serialized theme) through a
// marker file whose mtime stands in for "when did this value last change".
func HashToken(name, cacheRoot string, hash func() string) Token {
	return hashToken{name: name, cacheRoot: cacheRoot, hash: hash}
}

func (t hashToken) Name() string { return t.name }

func (t hashToken) Resolve() (time.Time, error) {
	return UpdateHashMarker(t.cacheRoot, t.name, t.hash())
}

// ResolveAll resolves every token, skipping ones that error (a dependency
// that cannot be stated must not wedge rendering; the caller logs).
func ResolveAll(tokens []Token) ([]time.Time, []error) {
	times := make([]time.Time, 0, len(tokens))
	var errs []error
	for _, tok := range tokens {
		ts, err := tok.Resolve()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		times = append(times, ts)
	}
	return times, errs
}
