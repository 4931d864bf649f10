// Package memory provides an in-memory TokenStore. It is suitable for
// development, testing, and single-process deployments.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/storage"
)

// Store is an in-memory implementation of storage.TokenStore. When
// constructed with a codec, records pass through the same
// serialize/compress/encrypt pipeline as the durable stores, so the
// round-trip contract is exercised even in memory.
type Store struct {
	mu     sync.RWMutex
	blobs  map[helix.Principal][]byte
	plain  map[helix.Principal]helix.AuthToken
	codec  *storage.Codec
	logger *slog.Logger
}

var _ storage.TokenStore = (*Store)(nil)

// New creates an in-memory store. codec may be nil, in which case
// records are kept as plain copies.
func New(codec *storage.Codec, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		blobs:  make(map[helix.Principal][]byte),
		plain:  make(map[helix.Principal]helix.AuthToken),
		codec:  codec,
		logger: logger,
	}
}

// Get retrieves the token for a principal.
func (s *Store) Get(_ context.Context, id helix.Principal) (*helix.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.codec != nil {
		blob, ok := s.blobs[id]
		if !ok {
			return nil, storage.ErrNotFound
		}
		token, err := s.codec.Decode(blob)
		if err != nil {
			return nil, &helix.PersistenceError{Principal: id, Op: "read", Err: err}
		}
		return token, nil
	}

	token, ok := s.plain[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := token
	copied.Scopes = append([]helix.Scope(nil), token.Scopes...)
	return &copied, nil
}

// GetAll retrieves every stored token.
func (s *Store) GetAll(_ context.Context) ([]*helix.AuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.codec != nil {
		tokens := make([]*helix.AuthToken, 0, len(s.blobs))
		for id, blob := range s.blobs {
			token, err := s.codec.Decode(blob)
			if err != nil {
				return nil, &helix.PersistenceError{Principal: id, Op: "read", Err: err}
			}
			tokens = append(tokens, token)
		}
		return tokens, nil
	}

	tokens := make([]*helix.AuthToken, 0, len(s.plain))
	for _, token := range s.plain {
		copied := token
		copied.Scopes = append([]helix.Scope(nil), token.Scopes...)
		tokens = append(tokens, &copied)
	}
	return tokens, nil
}

// Put stores a token, replacing any record for the same principal.
func (s *Store) Put(_ context.Context, token *helix.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codec != nil {
		blob, err := s.codec.Encode(token)
		if err != nil {
			return &helix.PersistenceError{Principal: token.ID, Op: "write", Err: err}
		}
		s.blobs[token.ID] = blob
		return nil
	}

	copied := *token
	copied.Scopes = append([]helix.Scope(nil), token.Scopes...)
	s.plain[token.ID] = copied
	return nil
}

// Delete removes the token for a principal.
func (s *Store) Delete(_ context.Context, id helix.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, id)
	delete(s.plain, id)
	return nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.codec != nil {
		return len(s.blobs)
	}
	return len(s.plain)
}
