package memoria

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenStore is an in-process refresh-token registry with the same
// single-use semantics as the Redis one.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	now    func() time.Time
}

type tokenEntry struct {
	usuarioID uuid.UUID
	expira    time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]tokenEntry), now: time.Now}
}

func (s *TokenStore) Guardar(_ context.Context, jti string, usuarioID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jti] = tokenEntry{usuarioID: usuarioID, expira: s.now().Add(ttl)}
	return nil
}

func (s *TokenStore) Consumir(_ context.Context, jti string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[jti]
	delete(s.tokens, jti)
	if !ok || s.now().After(e.expira) {
		return uuid.Nil, false, nil
	}
	return e.usuarioID, true, nil
}

func (s *TokenStore) Revocar(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, jti)
	return nil
}
