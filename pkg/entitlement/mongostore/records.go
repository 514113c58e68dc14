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

const recordsCollection = "entitlements"

// recordDoc is the persisted shape of an entitlement record. The user ID
// doubles as the document key so every mutation is a single-document
// operation, which is what makes the conditional writes atomic.
type recordDoc struct {
	UserID                 string     `bson:"_id"`
	TrialStartAt           time.Time  `bson:"trial_start_at"`
	TrialEndAt             time.Time  `bson:"trial_end_at"`
	TrialDaysLeft          int        `bson:"trial_days_left"`
	TrialActive            bool       `bson:"trial_active"`
	TrialExpired           bool       `bson:"trial_expired"`
	TrialCountdownSyncedOn string     `bson:"trial_countdown_synced_on,omitempty"`
	Status                 string     `bson:"subscription_status"`
	ProviderCustomerID     string     `bson:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string     `bson:"provider_subscription_id,omitempty"`
	CancelAtPeriodEnd      bool       `bson:"cancel_at_period_end"`
	SubscriptionStartAt    *time.Time `bson:"subscription_start_at,omitempty"`
	SubscriptionEndAt      *time.Time `bson:"subscription_end_at,omitempty"`
	NextBillingAt          *time.Time `bson:"next_billing_at,omitempty"`
	AutoRenewRequested     bool       `bson:"auto_renew_requested"`
	Version                int64      `bson:"version"`
	CreatedAt              time.Time  `bson:"created_at"`
	UpdatedAt              time.Time  `bson:"updated_at"`
}

func toRecordDoc(r *entitlement.Record) recordDoc {
	return recordDoc{
		UserID:                 r.UserID.String(),
		TrialStartAt:           r.TrialStartAt,
		TrialEndAt:             r.TrialEndAt,
		TrialDaysLeft:          r.TrialDaysLeft,
		TrialActive:            r.TrialActive,
		TrialExpired:           r.TrialExpired,
		TrialCountdownSyncedOn: r.TrialCountdownSyncedOn,
		Status:                 string(r.Status),
		ProviderCustomerID:     r.ProviderCustomerID,
		ProviderSubscriptionID: r.ProviderSubscriptionID,
		CancelAtPeriodEnd:      r.CancelAtPeriodEnd,
		SubscriptionStartAt:    r.SubscriptionStartAt,
		SubscriptionEndAt:      r.SubscriptionEndAt,
		NextBillingAt:          r.NextBillingAt,
		AutoRenewRequested:     r.AutoRenewRequested,
		Version:                r.Version,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

func (d recordDoc) toRecord() (*entitlement.Record, error) {
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, err
	}
	return &entitlement.Record{
		UserID:                 userID,
		TrialStartAt:           d.TrialStartAt,
		TrialEndAt:             d.TrialEndAt,
		TrialDaysLeft:          d.TrialDaysLeft,
		TrialActive:            d.TrialActive,
		TrialExpired:           d.TrialExpired,
		TrialCountdownSyncedOn: d.TrialCountdownSyncedOn,
		Status:                 entitlement.Status(d.Status),
		ProviderCustomerID:     d.ProviderCustomerID,
		ProviderSubscriptionID: d.ProviderSubscriptionID,
		CancelAtPeriodEnd:      d.CancelAtPeriodEnd,
		SubscriptionStartAt:    d.SubscriptionStartAt,
		SubscriptionEndAt:      d.SubscriptionEndAt,
		NextBillingAt:          d.NextBillingAt,
		AutoRenewRequested:     d.AutoRenewRequested,
		Version:                d.Version,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}, nil
}

// RecordStore implements entitlement.Store on a MongoDB collection.
type RecordStore struct {
	coll *mongo.Collection
}

// NewRecordStore creates a record store bound to the entitlements
// collection of the given database.
func NewRecordStore(db *mongo.Database) *RecordStore {
	return &RecordStore{coll: db.Collection(recordsCollection)}
}

func (s *RecordStore) Get(ctx context.Context, userID uuid.UUID) (*entitlement.Record, error) {
	return s.findOne(ctx, bson.M{"_id": userID.String()})
}

func (s *RecordStore) GetByProviderCustomer(ctx context.Context, customerID string) (*entitlement.Record, error) {
	if customerID == "" {
		return nil, entitlement.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"provider_customer_id": customerID})
}

func (s *RecordStore) GetByProviderSubscription(ctx context.Context, subscriptionID string) (*entitlement.Record, error) {
	if subscriptionID == "" {
		return nil, entitlement.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"provider_subscription_id": subscriptionID})
}

func (s *RecordStore) findOne(ctx context.Context, filter bson.M) (*entitlement.Record, error) {
	var doc recordDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entitlement.ErrRecordNotFound
		}
		return nil, err
	}
	return doc.toRecord()
}

func (s *RecordStore) Create(ctx context.Context, r *entitlement.Record) error {
	if _, err := s.coll.InsertOne(ctx, toRecordDoc(r)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entitlement.ErrRecordAlreadyExists
		}
		return err
	}
	return nil
}

// Update replaces the document only when the stored version matches the
// in-memory one, so a concurrent writer cannot be clobbered. On success
// the record's version is bumped to match the store.
func (s *RecordStore) Update(ctx context.Context, r *entitlement.Record) error {
	doc := toRecordDoc(r)
	doc.Version = r.Version + 1

	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.UserID, "version": r.Version}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a lost race from a missing record.
		if err := s.coll.FindOne(ctx, bson.M{"_id": doc.UserID}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
			return entitlement.ErrRecordNotFound
		}
		return entitlement.ErrVersionConflict
	}
	r.Version = doc.Version
	return nil
}

// SyncCountdown writes the refreshed countdown cache guarded by the sync
// day: the filter only matches while the stored day differs, so under N
// concurrent evaluations at most one write lands per UTC day.
func (s *RecordStore) SyncCountdown(ctx context.Context, userID uuid.UUID, day string, daysLeft int, active, expired bool) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": userID.String(), "trial_countdown_synced_on": bson.M{"$ne": day}},
		bson.M{
			"$set": bson.M{
				"trial_days_left":           daysLeft,
				"trial_active":              active,
				"trial_expired":             expired,
				"trial_countdown_synced_on": day,
			},
			// Bump the version so an in-flight conditional replace loses
			// the race and retries instead of overwriting this write.
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
