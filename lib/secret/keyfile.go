// Copyright 2026 The x86adapt Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"fmt"
	"io/fs"
	"os"
)

// KeySize is the exact size in bytes of a recording encryption key
// file: raw key material for HKDF expansion, not a passphrase.
const KeySize = 32

// LoadKeyFile reads a 32-byte key file into a protected Buffer. The
// file must be exactly KeySize bytes and must not be readable by group
// or world; a sloppy mode is rejected rather than silently accepted.
// The returned Buffer must be closed by the caller.
func LoadKeyFile(path string) (*Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("secret: stat key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("secret: key file %s has mode %04o, want no group/world access (chmod 600)", path, mode)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: reading key file: %w", err)
	}
	if len(data) != KeySize {
		Zero(data)
		return nil, fmt.Errorf("secret: key file %s is %d bytes, want exactly %d", path, len(data), KeySize)
	}

	return NewFromBytes(data)
}

// WriteKeyFile writes freshly generated key material to path with mode
// 0600, refusing to overwrite an existing file.
func WriteKeyFile(path string, key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("secret: key is %d bytes, want exactly %d", len(key), KeySize)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fs.FileMode(0o600))
	if err != nil {
		return fmt.Errorf("secret: creating key file: %w", err)
	}
	_, writeErr := file.Write(key)
	closeErr := file.Close()
	if writeErr != nil {
		os.Remove(path)
		return fmt.Errorf("secret: writing key file: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("secret: closing key file: %w", closeErr)
	}
	return nil
}
