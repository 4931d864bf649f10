package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/security"
)

// Codec converts an AuthToken to and from its at-rest blob form:
// gob serialization, gzip compression, then AES-GCM encryption with a
// key derived from the application client secret. Decode reverses the
// pipeline exactly; a token written and read back is field-for-field
// equal to the original.
type Codec struct {
	encryptor *security.Encryptor
}

// NewCodec creates a codec around the given encryptor.
func NewCodec(encryptor *security.Encryptor) *Codec {
	return &Codec{encryptor: encryptor}
}

// Encode serializes, compresses, and encrypts a token.
func (c *Codec) Encode(token *helix.AuthToken) ([]byte, error) {
	var serialized bytes.Buffer
	if err := gob.NewEncoder(&serialized).Encode(token); err != nil {
		return nil, fmt.Errorf("failed to serialize token: %w", err)
	}

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(serialized.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to compress token: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress token: %w", err)
	}

	blob, err := c.encryptor.Encrypt(compressed.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt token: %w", err)
	}
	return blob, nil
}

// Decode decrypts, decompresses, and deserializes a blob.
func (c *Codec) Decode(blob []byte) (*helix.AuthToken, error) {
	compressed, err := c.encryptor.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress token: %w", err)
	}
	serialized, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress token: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("failed to decompress token: %w", err)
	}

	var token helix.AuthToken
	if err := gob.NewDecoder(bytes.NewReader(serialized)).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to deserialize token: %w", err)
	}
	return &token, nil
}
