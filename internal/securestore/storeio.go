package securestore

import (
	"os"
	"path/filepath"
)

// ReadDecryptedFile reads and decrypts the file at path with secret.
func ReadDecryptedFile(path, secret string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decrypt(secret, raw)
}

// WriteEncryptedFile encrypts plaintext under secret and atomically replaces
// the file at path, matching save() semantics ("atomic-
// replace the stored bytes").
func WriteEncryptedFile(path, secret string, plaintext []byte) error {
	encrypted, err := Encrypt(secret, plaintext)
	if err != nil {
		return err
	}
	return AtomicReplace(path, encrypted)
}

// AtomicReplace writes data to a temp file beside path and renames it into
// place, so a crash mid-write never leaves a half-written contacts file.
func AtomicReplace(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
