// Package auth manages API keys and bearer tokens for the validation
// service. Key material is never stored; only a SHA-256 hash is persisted.
// Access levels gate the admin surface (catalog loads, key management).
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// keyPrefix marks raw RxGuard API keys on the wire.
const keyPrefix = "rxg_"

var (
	ErrKeyNotFound = errors.New("api key not found")
	ErrKeyRevoked  = errors.New("api key revoked")
	ErrKeyExpired  = errors.New("api key expired")
	ErrInvalidKey  = errors.New("invalid api key")
)

// AccessLevel orders what a credential may do. Higher levels include the
// lower ones.
type AccessLevel string

const (
	LevelReadonly AccessLevel = "readonly"
	LevelStandard AccessLevel = "standard"
	LevelFull     AccessLevel = "full"
	LevelAdmin    AccessLevel = "admin"
)

var levelRank = map[AccessLevel]int{
	LevelReadonly: 0,
	LevelStandard: 1,
	LevelFull:     2,
	LevelAdmin:    3,
}

// ParseAccessLevel maps a wire token to an AccessLevel; unknown tokens are
// an error.
func ParseAccessLevel(s string) (AccessLevel, error) {
	token := AccessLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levelRank[token]; !ok {
		return "", fmt.Errorf("unknown access level %q", s)
	}
	return token, nil
}

// Allows reports whether this level covers the required one.
func (l AccessLevel) Allows(required AccessLevel) bool {
	return levelRank[l] >= levelRank[required]
}

func (l AccessLevel) String() string { return string(l) }

// APIKey is a managed credential. KeyHash is the SHA-256 of the raw key and
// is never serialized.
type APIKey struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	KeyHash    string      `json:"-"`
	KeyPrefix  string      `json:"key_prefix"`
	Level      AccessLevel `json:"access_level"`
	Status     string      `json:"status"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	RevokedAt  *time.Time  `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time  `json:"last_used_at,omitempty"`
}

// Store is the persistence contract for API keys.
type Store interface {
	CreateKey(ctx context.Context, key *APIKey) error
	GetByID(ctx context.Context, id string) (*APIKey, error)
	GetByHash(ctx context.Context, hash string) (*APIKey, error)
	ListKeys(ctx context.Context) ([]*APIKey, error)
	UpdateKey(ctx context.Context, key *APIKey) error
	DeleteKey(ctx context.Context, id string) error
}

// InMemoryStore is a thread-safe in-memory Store suitable for single-node
// deployments; keys are lost on restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*APIKey
	byHash  map[string]string
	ordered []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*APIKey),
		byHash: make(map[string]string),
	}
}

func (s *InMemoryStore) CreateKey(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[key.ID] = copyKey(key)
	s.byHash[key.KeyHash] = key.ID
	s.ordered = append(s.ordered, key.ID)
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byID[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(key), nil
}

func (s *InMemoryStore) GetByHash(_ context.Context, hash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(s.byID[id]), nil
}

func (s *InMemoryStore) ListKeys(_ context.Context) ([]*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*APIKey, 0, len(s.ordered))
	for _, id := range s.ordered {
		if key, ok := s.byID[id]; ok {
			out = append(out, copyKey(key))
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateKey(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[key.ID]
	if !ok {
		return ErrKeyNotFound
	}
	if old.KeyHash != key.KeyHash {
		delete(s.byHash, old.KeyHash)
		s.byHash[key.KeyHash] = key.ID
	}
	s.byID[key.ID] = copyKey(key)
	return nil
}

func (s *InMemoryStore) DeleteKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return ErrKeyNotFound
	}
	delete(s.byHash, key.KeyHash)
	delete(s.byID, id)
	for i, kid := range s.ordered {
		if kid == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return nil
}

func copyKey(k *APIKey) *APIKey {
	dup := *k
	if k.ExpiresAt != nil {
		t := *k.ExpiresAt
		dup.ExpiresAt = &t
	}
	if k.RevokedAt != nil {
		t := *k.RevokedAt
		dup.RevokedAt = &t
	}
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		dup.LastUsedAt = &t
	}
	return &dup
}

// Manager generates, validates, and revokes API keys. An optional master
// key from configuration always validates as an admin credential.
type Manager struct {
	store     Store
	masterKey string
}

func NewManager(store Store, masterKey string) *Manager {
	return &Manager{store: store, masterKey: masterKey}
}

// GenerateKey mints a new key. The raw key is returned exactly once; only
// its hash survives.
func (m *Manager) GenerateKey(ctx context.Context, name string, level AccessLevel, ttl time.Duration) (*APIKey, string, error) {
	raw, err := generateRawKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate key material: %w", err)
	}
	key := &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   hashKey(raw),
		KeyPrefix: raw[:len(keyPrefix)+8],
		Level:     level,
		Status:    "active",
		CreatedAt: time.Now(),
	}
	if ttl > 0 {
		expires := key.CreatedAt.Add(ttl)
		key.ExpiresAt = &expires
	}
	if err := m.store.CreateKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, raw, nil
}

// ValidateKey resolves a raw key to its record, updating last-used. The
// master key short-circuits to a synthetic admin credential.
func (m *Manager) ValidateKey(ctx context.Context, rawKey string) (*APIKey, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}
	if m.masterKey != "" && rawKey == m.masterKey {
		return &APIKey{ID: "master", Name: "master", Level: LevelAdmin, Status: "active"}, nil
	}
	key, err := m.store.GetByHash(ctx, hashKey(rawKey))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, err
	}
	if key.Status == "revoked" {
		return nil, ErrKeyRevoked
	}
	if key.ExpiresAt != nil && time.Now().After(*key.ExpiresAt) {
		return nil, ErrKeyExpired
	}
	now := time.Now()
	key.LastUsedAt = &now
	// Best effort; a failed usage timestamp must not fail the request.
	_ = m.store.UpdateKey(ctx, key)
	return key, nil
}

// RevokeKey marks the key unusable. Revocation is permanent.
func (m *Manager) RevokeKey(ctx context.Context, id string) error {
	key, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if key.Status == "revoked" {
		return nil
	}
	now := time.Now()
	key.Status = "revoked"
	key.RevokedAt = &now
	return m.store.UpdateKey(ctx, key)
}

// RotateKey revokes the old material and issues fresh material under the
// same id, name, and level.
func (m *Manager) RotateKey(ctx context.Context, id string) (*APIKey, string, error) {
	key, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	raw, err := generateRawKey()
	if err != nil {
		return nil, "", fmt.Errorf("generate key material: %w", err)
	}
	key.KeyHash = hashKey(raw)
	key.KeyPrefix = raw[:len(keyPrefix)+8]
	if err := m.store.UpdateKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, raw, nil
}

// ListKeys returns all keys, masked (no hash) and in creation order.
func (m *Manager) ListKeys(ctx context.Context) ([]*APIKey, error) {
	return m.store.ListKeys(ctx)
}

func generateRawKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(b), nil
}

func hashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}
