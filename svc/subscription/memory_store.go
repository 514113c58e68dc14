package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platemind/entitlements/pkg/entitlement"
)

// In-memory store implementations with the same conditional-write
// semantics as the Mongo ones. Useful for tests and local development
// without a database.

// MemoryRecordStore implements entitlement.Store in memory.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]entitlement.Record
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[uuid.UUID]entitlement.Record)}
}

func (s *MemoryRecordStore) Get(_ context.Context, userID uuid.UUID) (*entitlement.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, entitlement.ErrRecordNotFound
	}
	return &rec, nil
}

func (s *MemoryRecordStore) GetByProviderCustomer(_ context.Context, customerID string) (*entitlement.Record, error) {
	return s.find(func(r entitlement.Record) bool {
		return customerID != "" && r.ProviderCustomerID == customerID
	})
}

func (s *MemoryRecordStore) GetByProviderSubscription(_ context.Context, subscriptionID string) (*entitlement.Record, error) {
	return s.find(func(r entitlement.Record) bool {
		return subscriptionID != "" && r.ProviderSubscriptionID == subscriptionID
	})
}

func (s *MemoryRecordStore) find(match func(entitlement.Record) bool) (*entitlement.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if match(rec) {
			out := rec
			return &out, nil
		}
	}
	return nil, entitlement.ErrRecordNotFound
}

func (s *MemoryRecordStore) Create(_ context.Context, r *entitlement.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.UserID]; ok {
		return entitlement.ErrRecordAlreadyExists
	}
	s.records[r.UserID] = *r
	return nil
}

func (s *MemoryRecordStore) Update(_ context.Context, r *entitlement.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[r.UserID]
	if !ok {
		return entitlement.ErrRecordNotFound
	}
	if stored.Version != r.Version {
		return entitlement.ErrVersionConflict
	}
	r.Version++
	s.records[r.UserID] = *r
	return nil
}

func (s *MemoryRecordStore) SyncCountdown(_ context.Context, userID uuid.UUID, day string, daysLeft int, active, expired bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok || rec.TrialCountdownSyncedOn == day {
		return false, nil
	}
	rec.TrialDaysLeft = daysLeft
	rec.TrialActive = active
	rec.TrialExpired = expired
	rec.TrialCountdownSyncedOn = day
	rec.Version++
	s.records[userID] = rec
	return true, nil
}

// MemoryCheckoutStore implements entitlement.CheckoutStore in memory.
type MemoryCheckoutStore struct {
	mu       sync.Mutex
	sessions map[string]entitlement.CheckoutSession
}

func NewMemoryCheckoutStore() *MemoryCheckoutStore {
	return &MemoryCheckoutStore{sessions: make(map[string]entitlement.CheckoutSession)}
}

func (s *MemoryCheckoutStore) Create(_ context.Context, session *entitlement.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.SessionID]; ok {
		return entitlement.ErrSessionAlreadyExists
	}
	s.sessions[session.SessionID] = *session
	return nil
}

func (s *MemoryCheckoutStore) Get(_ context.Context, sessionID string) (*entitlement.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, entitlement.ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryCheckoutStore) Resolve(_ context.Context, sessionID string, status entitlement.CheckoutStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return entitlement.ErrSessionNotFound
	}
	if session.Status != entitlement.CheckoutPending {
		if session.Status == status {
			return nil
		}
		return entitlement.ErrSessionAlreadyResolved
	}
	at = at.UTC()
	session.Status = status
	session.CompletedAt = &at
	s.sessions[sessionID] = session
	return nil
}

// MemoryEventLedger implements entitlement.EventLedger in memory.
type MemoryEventLedger struct {
	mu      sync.Mutex
	entries map[string]entitlement.LedgerEntry
}

func NewMemoryEventLedger() *MemoryEventLedger {
	return &MemoryEventLedger{entries: make(map[string]entitlement.LedgerEntry)}
}

func (s *MemoryEventLedger) Claim(_ context.Context, eventID, eventType string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[eventID]; ok {
		return entry.ProcessedAt != nil, nil
	}
	s.entries[eventID] = entitlement.LedgerEntry{
		EventID:    eventID,
		EventType:  eventType,
		ReceivedAt: now.UTC(),
	}
	return false, nil
}

func (s *MemoryEventLedger) MarkProcessed(_ context.Context, eventID, outcome string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[eventID]
	if !ok {
		return entitlement.ErrEventNotFound
	}
	at := now.UTC()
	entry.ProcessedAt = &at
	entry.Outcome = outcome
	s.entries[eventID] = entry
	return nil
}

func (s *MemoryEventLedger) Get(_ context.Context, eventID string) (*entitlement.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[eventID]
	if !ok {
		return nil, entitlement.ErrEventNotFound
	}
	return &entry, nil
}
