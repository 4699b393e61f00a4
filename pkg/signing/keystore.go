package signing

import (
	"errors"
	"fmt"
	"sync"
)

// Key store errors.
var (
	ErrUnknownKey = errors.New("unknown key")
	ErrRevokedKey = errors.New("revoked key")
)

// KeyStore resolves key ids to signing and verification keys.
type KeyStore interface {
	SigningKey(keyID string) (*KeyPair, error)
	VerificationKey(keyID string) (PublicKey, error)
}

// MemoryKeyStore is an in-memory KeyStore. It is safe for concurrent use.
type MemoryKeyStore struct {
	mu      sync.RWMutex
	signing map[string]*KeyPair
	trusted map[string]PublicKey
	revoked map[string]struct{}
}

// NewMemoryKeyStore creates an empty key store.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		signing: make(map[string]*KeyPair),
		trusted: make(map[string]PublicKey),
		revoked: make(map[string]struct{}),
	}
}

// AddSigningKey adds a local key. Its public half is trusted as well.
func (s *MemoryKeyStore) AddSigningKey(k *KeyPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signing[k.ID()] = k
	s.trusted[k.ID()] = k.Public()
	delete(s.revoked, k.ID())
}

// AddTrustedKey trusts a remote verification key.
func (s *MemoryKeyStore) AddTrustedKey(pub PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trusted[pub.ID] = pub
	delete(s.revoked, pub.ID)
}

// Revoke stops a key from signing or verifying.
func (s *MemoryKeyStore) Revoke(keyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[keyID] = struct{}{}
}

// SigningKey returns a local key.
func (s *MemoryKeyStore) SigningKey(keyID string) (*KeyPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, revoked := s.revoked[keyID]; revoked {
		return nil, fmt.Errorf("%w: %s", ErrRevokedKey, keyID)
	}
	k, ok := s.signing[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	return k, nil
}

// VerificationKey returns a trusted key.
func (s *MemoryKeyStore) VerificationKey(keyID string) (PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, revoked := s.revoked[keyID]; revoked {
		return PublicKey{}, fmt.Errorf("%w: %s", ErrRevokedKey, keyID)
	}
	k, ok := s.trusted[keyID]
	if !ok {
		return PublicKey{}, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	return k, nil
}
