package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/platemind/entitlements/pkg/entitlement"
)

const ledgerCollection = "webhook_events"

type ledgerDoc struct {
	EventID     string     `bson:"_id"`
	EventType   string     `bson:"event_type"`
	ReceivedAt  time.Time  `bson:"received_at"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty"`
	Outcome     string     `bson:"outcome,omitempty"`
}

// EventLedgerStore implements entitlement.EventLedger on MongoDB.
type EventLedgerStore struct {
	coll *mongo.Collection
}

func NewEventLedgerStore(db *mongo.Database) *EventLedgerStore {
	return &EventLedgerStore{coll: db.Collection(ledgerCollection)}
}

// Claim inserts an unprocessed entry if absent via an atomic upsert, which
// holds under concurrent redelivery of the same event ID. An existing
// processed entry short-circuits reprocessing; an existing unprocessed
// entry (an earlier failed attempt) claims successfully so the retry runs.
func (s *EventLedgerStore) Claim(ctx context.Context, eventID, eventType string, now time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$setOnInsert": bson.M{
			"event_type":  eventType,
			"received_at": now.UTC(),
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	if res.UpsertedCount > 0 {
		return false, nil
	}

	entry, err := s.Get(ctx, eventID)
	if err != nil {
		return false, err
	}
	return entry.ProcessedAt != nil, nil
}

func (s *EventLedgerStore) MarkProcessed(ctx context.Context, eventID, outcome string, now time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"processed_at": now.UTC(), "outcome": outcome}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return entitlement.ErrEventNotFound
	}
	return nil
}

func (s *EventLedgerStore) Get(ctx context.Context, eventID string) (*entitlement.LedgerEntry, error) {
	var doc ledgerDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": eventID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entitlement.ErrEventNotFound
		}
		return nil, err
	}
	return &entitlement.LedgerEntry{
		EventID:     doc.EventID,
		EventType:   doc.EventType,
		ReceivedAt:  doc.ReceivedAt,
		ProcessedAt: doc.ProcessedAt,
		Outcome:     doc.Outcome,
	}, nil
}
