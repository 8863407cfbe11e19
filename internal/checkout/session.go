package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorportal/pkg/enums"
	"github.com/angelmondragon/vendorportal/pkg/redis"
)

// Session ties a payment reference to the holds placed for it.
type Session struct {
	Reference      string              `json:"reference"`
	VendorID       string              `json:"vendorId"`
	Email          string              `json:"email"`
	Amount         decimal.Decimal     `json:"amount"`
	Currency       string              `json:"currency"`
	ReservationIDs []uuid.UUID         `json:"reservationIds"`
	Status         enums.PaymentStatus `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// Settled reports whether the holds were already committed or released.
func (s *Session) Settled() bool {
	switch s.Status {
	case enums.PaymentStatusSuccess, enums.PaymentStatusFailed, enums.PaymentStatusAbandoned, enums.PaymentStatusReversed:
		return true
	default:
		return false
	}
}

// SessionStore persists sessions between initialize and verify.
type SessionStore interface {
	Save(ctx context.Context, session *Session, ttl time.Duration) error
	Load(ctx context.Context, reference string) (*Session, error)
}

type sessionCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	CheckoutKey(reference string) string
}

// RedisStore keeps sessions as JSON under vp:checkout:<reference>.
type RedisStore struct {
	client sessionCache
}

// NewRedisStore wraps the shared redis client.
func NewRedisStore(client sessionCache) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, session *Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode checkout session: %w", err)
	}
	return s.client.Set(ctx, s.client.CheckoutKey(session.Reference), payload, ttl)
}

// Load returns nil, nil when the reference is unknown.
func (s *RedisStore) Load(ctx context.Context, reference string) (*Session, error) {
	raw, err := s.client.Get(ctx, s.client.CheckoutKey(reference))
	if err != nil {
		if redis.IsMiss(err) {
			return nil, nil
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &session, nil
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore is the single-process fallback when redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, session *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	entry := memoryEntry{session: *session}
	entry.session.ReservationIDs = append([]uuid.UUID(nil), session.ReservationIDs...)
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[session.Reference] = entry
	return nil
}

func (s *MemoryStore) Load(_ context.Context, reference string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	entry, ok := s.entries[reference]
	if !ok {
		return nil, nil
	}
	session := entry.session
	session.ReservationIDs = append([]uuid.UUID(nil), entry.session.ReservationIDs...)
	return &session, nil
}

func (s *MemoryStore) evictLocked() {
	now := s.now()
	for ref, entry := range s.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(s.entries, ref)
		}
	}
}
