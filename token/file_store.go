package token

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/storefront-session/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	keyLength  = 32
	hkdfInfo   = "storefront token store v1"
	recordPerm = 0o600
	dirPerm    = 0o700
)

var _ Store = (*FileStore)(nil)

// sealedRecord is the on-disk format: the JSON encoded Credentials sealed with XChaCha20-Poly1305
type sealedRecord struct {
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// FileStore persists the token pair to a single encrypted file.
// Writes go to a temp file in the same directory which is then renamed over
// the old one, so both tokens change together.
type FileStore struct {
	mu   sync.RWMutex
	path string
	aead cipher.AEAD
}

// NewFileStore opens a store at path, encrypting with a key derived from secret
func NewFileStore(path string, secret []byte) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("token file path is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("token store secret is required")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("[token NewFileStore] deriving key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[token NewFileStore] creating cipher: %w", err)
	}

	return &FileStore{path: path, aead: aead}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) AccessToken() (string, error) {
	creds, err := s.Credentials()
	return creds.AccessToken, err
}

func (s *FileStore) RefreshToken() (string, error) {
	creds, err := s.Credentials()
	return creds.RefreshToken, err
}

// Credentials returns both tokens from a single read of the file
func (s *FileStore) Credentials() (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *FileStore) SetTokens(accessToken, refreshToken string) error {
	plain, err := json.Marshal(Credentials{AccessToken: accessToken, RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("[token SetTokens] encoding: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("[token SetTokens] generating nonce: %w", err)
	}
	record, err := json.Marshal(sealedRecord{Nonce: nonce, Data: s.aead.Seal(nil, nonce, plain, nil)})
	if err != nil {
		return fmt.Errorf("[token SetTokens] encoding record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path, record)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[token Clear] %w", err)
	}
	return nil
}

func (s *FileStore) read() (Credentials, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("[token read] %w", err)
	}

	var record sealedRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return Credentials{}, apperrors.Wrapf(apperrors.ErrCorruptTokenFile, "decoding %s", s.path)
	}
	if len(record.Nonce) != s.aead.NonceSize() {
		return Credentials{}, apperrors.Wrapf(apperrors.ErrCorruptTokenFile, "bad nonce in %s", s.path)
	}
	plain, err := s.aead.Open(nil, record.Nonce, record.Data, nil)
	if err != nil {
		return Credentials{}, apperrors.Wrapf(apperrors.ErrCorruptTokenFile, "decrypting %s", s.path)
	}

	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return Credentials{}, apperrors.Wrapf(apperrors.ErrCorruptTokenFile, "decoding tokens in %s", s.path)
	}
	return creds, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("[token write] creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("[token write] %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[token write] %w", err)
	}
	if err := tmp.Chmod(recordPerm); err != nil {
		tmp.Close()
		return fmt.Errorf("[token write] %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[token write] %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[token write] %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("[token write] %w", err)
	}
	return nil
}

// LoadOrCreateKey returns the per-install secret stored hex encoded at path,
// generating and persisting a new random one on first use.
func LoadOrCreateKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		key, err := hex.DecodeString(string(raw))
		if err != nil || len(key) != keyLength {
			return nil, fmt.Errorf("[token LoadOrCreateKey] %s does not hold a %d byte hex key", path, keyLength)
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("[token LoadOrCreateKey] %w", err)
	}

	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("[token LoadOrCreateKey] generating key: %w", err)
	}
	if err := writeFileAtomic(path, []byte(hex.EncodeToString(key))); err != nil {
		return nil, err
	}
	return key, nil
}
