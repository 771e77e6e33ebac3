package token

import "sync"

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the token pair in process memory only
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AccessToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken, nil
}

func (s *MemoryStore) RefreshToken() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken, nil
}

// Credentials returns both tokens from a single read
func (s *MemoryStore) Credentials() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

func (s *MemoryStore) SetTokens(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{AccessToken: accessToken, RefreshToken: refreshToken}
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	return nil
}
