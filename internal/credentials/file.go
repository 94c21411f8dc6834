package credentials

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	saltSize     = 16
	keySize      = 32
	nonceSize    = 24
	sealedFormat = 1
)

// sealedFile is the on-disk layout when a passphrase is configured.
type sealedFile struct {
	Version int    `json:"version"`
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Box     []byte `json:"box"`
}

// FileStore keeps credentials in a JSON file readable only by the owner.
// With a passphrase the payload is sealed with a key derived by scrypt.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// NewSealedFileStore returns a FileStore that encrypts at rest.
func NewSealedFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, passphrase: []byte(passphrase)}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	payload, err := s.open(data)
	if err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials file: %w", err)
	}
	if creds.AccessToken == "" {
		return Credentials{}, ErrNoCredentials
	}
	return creds, nil
}

func (s *FileStore) Set(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	data, err := s.seal(payload)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}

func (s *FileStore) seal(payload []byte) ([]byte, error) {
	if len(s.passphrase) == 0 {
		return payload, nil
	}

	sealed := sealedFile{Version: sealedFormat, Salt: make([]byte, saltSize), Nonce: make([]byte, nonceSize)}
	if _, err := io.ReadFull(rand.Reader, sealed.Salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, sealed.Nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	key, err := deriveKey(s.passphrase, sealed.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed.Nonce)
	sealed.Box = secretbox.Seal(nil, payload, &nonce, key)
	return json.Marshal(sealed)
}

func (s *FileStore) open(data []byte) ([]byte, error) {
	var sealed sealedFile
	if err := json.Unmarshal(data, &sealed); err != nil || len(sealed.Box) == 0 {
		// Plain file.
		return data, nil
	}
	if len(s.passphrase) == 0 {
		return nil, fmt.Errorf("%w: file is encrypted and no passphrase is set", ErrDecrypt)
	}
	if sealed.Version != sealedFormat || len(sealed.Nonce) != nonceSize {
		return nil, fmt.Errorf("%w: unsupported file format", ErrDecrypt)
	}
	key, err := deriveKey(s.passphrase, sealed.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed.Nonce)
	payload, ok := secretbox.Open(nil, sealed.Box, &nonce, key)
	if !ok {
		return nil, ErrDecrypt
	}
	return payload, nil
}

func deriveKey(passphrase, salt []byte) (*[keySize]byte, error) {
	raw, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// writeFileAtomic writes through a temp file in the same directory so a
// crash never leaves a half-written credentials file behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
