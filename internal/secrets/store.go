// Package secrets keeps backend passwords out of the plain-text config file.
//
// Entries live in a per-user JSON file (mode 0600), sealed with AES-GCM under a
// key derived from the OS user. This obfuscates rather than protects; an OS
// keychain is stronger.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const fileName = "credentials.json"

// ErrNotFound is returned when no password is stored for a backend user.
var ErrNotFound = errors.New("secrets: credential not found")

type credentialFile struct {
	Credentials map[string]string `json:"credentials"` // entryKey -> base64(ciphertext)
}

// Store is a credential file in one directory.
type Store struct {
	dir string
	// seed feeds the sealing key; tests override it.
	seed string
}

// Open returns the store under dir, or under the user config dir when dir is empty.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("secrets: config dir: %w", err)
		}
		dir = filepath.Join(base, "equipviz")
	}
	return &Store{dir: dir, seed: fmt.Sprintf("equipviz-%s-%s", runtime.GOOS, os.Getenv("USER"))}, nil
}

// Path is the credential file location.
func (s *Store) Path() string { return filepath.Join(s.dir, fileName) }

// SetPassword stores password for user at baseURL, replacing any previous one.
func (s *Store) SetPassword(baseURL, user, password string) error {
	k, err := entryKey(baseURL, user)
	if err != nil {
		return err
	}
	cf, err := s.load()
	if err != nil {
		return err
	}
	ct, err := s.seal([]byte(password))
	if err != nil {
		return err
	}
	cf.Credentials[k] = base64.StdEncoding.EncodeToString(ct)
	return s.save(cf)
}

// Password returns the stored password for user at baseURL.
func (s *Store) Password(baseURL, user string) (string, error) {
	k, err := entryKey(baseURL, user)
	if err != nil {
		return "", err
	}
	cf, err := s.load()
	if err != nil {
		return "", err
	}
	enc, ok := cf.Credentials[k]
	if !ok {
		return "", ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("secrets: decode: %w", err)
	}
	pt, err := s.open(raw)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// Delete forgets the password for user at baseURL. Missing entries are not an error.
func (s *Store) Delete(baseURL, user string) error {
	k, err := entryKey(baseURL, user)
	if err != nil {
		return err
	}
	cf, err := s.load()
	if err != nil {
		return err
	}
	delete(cf.Credentials, k)
	return s.save(cf)
}

func entryKey(baseURL, user string) (string, error) {
	u := strings.TrimRight(strings.ToLower(strings.TrimSpace(baseURL)), "/")
	name := strings.TrimSpace(user)
	if u == "" || name == "" {
		return "", fmt.Errorf("secrets: base url and username required")
	}
	return name + "@" + u, nil
}

func (s *Store) load() (credentialFile, error) {
	cf := credentialFile{Credentials: map[string]string{}}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cf, nil
		}
		return cf, fmt.Errorf("secrets: read: %w", err)
	}
	if err := json.Unmarshal(data, &cf); err != nil {
		return cf, fmt.Errorf("secrets: parse %s: %w", s.Path(), err)
	}
	if cf.Credentials == nil {
		cf.Credentials = map[string]string{}
	}
	return cf, nil
}

func (s *Store) save(cf credentialFile) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("secrets: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("secrets: write: %w", err)
	}
	return os.Rename(tmp, s.Path())
}

func (s *Store) aead() (cipher.AEAD, error) {
	key := sha256.Sum256([]byte(s.seed))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

func (s *Store) open(ciphertext []byte) ([]byte, error) {
	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("secrets: ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("secrets: unseal: %w", err)
	}
	return pt, nil
}
