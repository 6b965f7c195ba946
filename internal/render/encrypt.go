package render

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	terrors "git.home.luguber.info/inful/trellis/internal/errors"
	"git.home.luguber.info/inful/trellis/internal/page"
)

const (
	pbkdf2Iterations = 120_000
	saltLen          = 16
	nonceLen         = 12
)

type cachedCipher struct {
	ciphertextB64 string
	saltB64       string
	nonceB64      string
}

// CipherCache memoizes encryption results so repeated renders of an unchanged
// protected note reuse the same ciphertext instead of burning 120k PBKDF2
// rounds per request. Keys cover password, plaintext, iteration count, and
// algorithm version, so any input change produces a fresh entry.
type CipherCache struct {
	mu      sync.Mutex
	entries map[string]cachedCipher
}

func NewCipherCache() *CipherCache {
	return &CipherCache{entries: map[string]cachedCipher{}}
}

func (c *CipherCache) get(key string) (cachedCipher, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hit, ok := c.entries[key]
	return hit, ok
}

func (c *CipherCache) put(key string, value cachedCipher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// EncryptContent encrypts note bodies when a password frontmatter key is
// present. The password is stripped from the rendered page; only cipher data
// is emitted, to be decrypted client-side via WebCrypto.
type EncryptContent struct {
	cache *CipherCache
}

func NewEncryptContent(cache *CipherCache) *EncryptContent {
	if cache == nil {
		cache = NewCipherCache()
	}
	return &EncryptContent{cache: cache}
}

func (*EncryptContent) Name() string { return "encrypt" }

func (e *EncryptContent) Transform(p *page.Page) error {
	password := p.Meta.Password
	if password == "" {
		return nil
	}
	// Markdown must have run already; without HTML there is nothing to protect.
	if p.HTML == "" {
		return nil
	}
	plaintext := p.HTML

	key := cipherCacheKey(password, plaintext)
	result, ok := e.cache.get(key)
	if !ok {
		var err error
		result, err = encryptHTML(password, plaintext)
		if err != nil {
			return err
		}
		e.cache.put(key, result)
	}

	// Word count from the pre-encryption plaintext, for read-time estimates.
	wordCount := len(strings.Fields(plaintext))
	p.Meta.WordCount = wordCount
	p.Meta.Encrypted = true
	p.Meta.Password = ""
	if p.Frontmatter != nil {
		p.Frontmatter["password"] = ""
		p.Frontmatter["word_count"] = wordCount
		p.Frontmatter["encrypted"] = true
	}

	p.HTML = encryptedNoteShell(result)
	return nil
}

func cipherCacheKey(password, plaintext string) string {
	h := sha256.New()
	h.Write([]byte(password))
	h.Write([]byte(plaintext))
	var iter [4]byte
	binary.LittleEndian.PutUint32(iter[:], pbkdf2Iterations)
	h.Write(iter[:])
	h.Write([]byte("AES-256-GCM:v1"))
	return hex.EncodeToString(h.Sum(nil))
}

func encryptHTML(password, plaintext string) (cachedCipher, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return cachedCipher{}, terrors.Wrap(err, terrors.CategoryCrypto, terrors.SeverityFatal, "generating salt")
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return cachedCipher{}, terrors.Wrap(err, terrors.CategoryCrypto, terrors.SeverityFatal, "generating nonce")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return cachedCipher{}, terrors.Wrap(err, terrors.CategoryCrypto, terrors.SeverityFatal, "creating cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return cachedCipher{}, terrors.Wrap(err, terrors.CategoryCrypto, terrors.SeverityFatal, "creating GCM")
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	return cachedCipher{
		ciphertextB64: base64.StdEncoding.EncodeToString(ciphertext),
		saltB64:       base64.StdEncoding.EncodeToString(salt),
		nonceB64:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

func encryptedNoteShell(c cachedCipher) string {
	return fmt.Sprintf(`<div class="encrypted-note" data-ciphertext="%s" data-salt="%s" data-nonce="%s" data-iterations="%d" data-algo="AES-256-GCM" data-kdf="PBKDF2-SHA256" data-version="1">
  <div class="encrypted-note__chrome">
    <div class="encrypted-note__status">Protected note · Enter the password to decrypt locally.</div>
    <form class="encrypted-note__form" novalidate>
      <div class="encrypted-note__field">
        <input class="encrypted-note__input" type="password" name="password" autocomplete="current-password" placeholder=" " required />
        <label class="encrypted-note__label">Password</label>
      </div>
      <div class="encrypted-note__actions">
        <button type="submit">Decrypt</button>
      </div>
    </form>
  </div>
  <div class="encrypted-note__decode" aria-live="polite"></div>
  <div class="encrypted-note__body" hidden></div>
</div>`, c.ciphertextB64, c.saltB64, c.nonceB64, pbkdf2Iterations)
}
