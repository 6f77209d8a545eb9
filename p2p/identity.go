package p2p

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/natefinch/atomic"
)

const (
	keyFilename = "p2p.key"
	keyDir      = "p2p"
)

func identity(cfg Config) (crypto.PrivKey, error) {
	if raw := cfg.PrivateKey.Bytes(); len(raw) > 0 {
		key, err := crypto.UnmarshalPrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("decode configured private key: %w", err)
		}
		return key, nil
	}
	return EnsureIdentity(cfg.DataDir)
}

// EnsureIdentity loads the ed25519 identity from dir or generates and
// persists a new one.
func EnsureIdentity(dir string) (crypto.PrivKey, error) {
	path := filepath.Join(dir, keyDir, keyFilename)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw, err := hex.DecodeString(string(bytes.TrimSpace(data)))
		if err != nil {
			return nil, fmt.Errorf("decode identity %s: %w", path, err)
		}
		key, err := crypto.UnmarshalPrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("unmarshal identity %s: %w", path, err)
		}
		return key, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read identity %s: %w", path, err)
	}
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	raw, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader([]byte(hex.EncodeToString(raw)))); err != nil {
		return nil, fmt.Errorf("write identity %s: %w", path, err)
	}
	return key, nil
}
