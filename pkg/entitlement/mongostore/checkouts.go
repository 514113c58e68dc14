package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/platemind/entitlements/pkg/entitlement"
)

const checkoutsCollection = "checkout_sessions"

type checkoutDoc struct {
	SessionID          string     `bson:"_id"`
	UserID             string     `bson:"user_id"`
	Status             string     `bson:"status"`
	Amount             int64      `bson:"amount"`
	Currency           string     `bson:"currency"`
	AutoRenewRequested bool       `bson:"auto_renew_requested"`
	CreatedAt          time.Time  `bson:"created_at"`
	CompletedAt        *time.Time `bson:"completed_at,omitempty"`
}

func (d checkoutDoc) toSession() (*entitlement.CheckoutSession, error) {
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, err
	}
	return &entitlement.CheckoutSession{
		SessionID:          d.SessionID,
		UserID:             userID,
		Status:             entitlement.CheckoutStatus(d.Status),
		Amount:             d.Amount,
		Currency:           d.Currency,
		AutoRenewRequested: d.AutoRenewRequested,
		CreatedAt:          d.CreatedAt,
		CompletedAt:        d.CompletedAt,
	}, nil
}

// CheckoutStore implements entitlement.CheckoutStore on MongoDB.
type CheckoutStore struct {
	coll *mongo.Collection
}

func NewCheckoutStore(db *mongo.Database) *CheckoutStore {
	return &CheckoutStore{coll: db.Collection(checkoutsCollection)}
}

func (s *CheckoutStore) Create(ctx context.Context, session *entitlement.CheckoutSession) error {
	doc := checkoutDoc{
		SessionID:          session.SessionID,
		UserID:             session.UserID.String(),
		Status:             string(session.Status),
		Amount:             session.Amount,
		Currency:           session.Currency,
		AutoRenewRequested: session.AutoRenewRequested,
		CreatedAt:          session.CreatedAt,
		CompletedAt:        session.CompletedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entitlement.ErrSessionAlreadyExists
		}
		return err
	}
	return nil
}

func (s *CheckoutStore) Get(ctx context.Context, sessionID string) (*entitlement.CheckoutSession, error) {
	var doc checkoutDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entitlement.ErrSessionNotFound
		}
		return nil, err
	}
	return doc.toSession()
}

// Resolve flips a pending session to a terminal status. A session already
// resolved to the same status is a no-op so webhook redelivery does not
// error; resolving to a different status reports the conflict.
func (s *CheckoutStore) Resolve(ctx context.Context, sessionID string, status entitlement.CheckoutStatus, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": sessionID, "status": string(entitlement.CheckoutPending)},
		bson.M{"$set": bson.M{"status": string(status), "completed_at": at.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	existing, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if existing.Status == status {
		return nil
	}
	return entitlement.ErrSessionAlreadyResolved
}
