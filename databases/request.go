package databases

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

const requestName = "dispatch_requests"

// RequestDatabase is the mongo backed dispatch request store
type RequestDatabase struct {
	db DatabaseHelper
}

// NewRequestDatabase initializes a new instance of request database with the provided db connection
func NewRequestDatabase(db DatabaseHelper) *RequestDatabase {
	return &RequestDatabase{db: db}
}

// Create inserts a new request. The unique _id turns a second insert of the
// same id into dispatch.ErrDuplicate.
func (r *RequestDatabase) Create(ctx context.Context, req *models.DispatchRequest) error {
	_, err := r.db.Collection(requestName).InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		return dispatch.ErrDuplicate
	}
	return err
}

// ConditionalTransition changes the status only if it still equals expected
func (r *RequestDatabase) ConditionalTransition(ctx context.Context, id string, expected models.RequestStatus, t models.Transition) (*models.DispatchRequest, error) {
	set := bson.M{
		"status":    t.To,
		"updatedAt": t.At,
	}
	switch t.To {
	case models.StatusAccepted:
		set["acceptedAt"] = t.At
	case models.StatusDeclined:
		set["declinedAt"] = t.At
	case models.StatusExpired:
		set["expiredAt"] = t.At
	}
	if t.EstimatedArrivalMinutes != nil {
		set["estimatedArrivalMinutes"] = *t.EstimatedArrivalMinutes
	}
	if t.PurgeAt != nil {
		set["purgeAt"] = *t.PurgeAt
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	updated := &models.DispatchRequest{}
	err := r.db.Collection(requestName).
		FindOneAndUpdate(ctx, bson.M{"_id": id, "status": expected}, bson.M{"$set": set}, opts).
		Decode(updated)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// nothing matched: tell a status conflict from an unknown id
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, dispatch.ErrNotFound
	}
	return nil, dispatch.ErrConflict
}

// Get returns nil when the id is unknown
func (r *RequestDatabase) Get(ctx context.Context, id string) (*models.DispatchRequest, error) {
	req := &models.DispatchRequest{}
	err := r.db.Collection(requestName).FindOne(ctx, bson.M{"_id": id}).Decode(req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// FindActiveForResponder lists pending unexpired requests for phone, newest first
func (r *RequestDatabase) FindActiveForResponder(ctx context.Context, phone string, now time.Time) ([]models.DispatchRequest, error) {
	filter := bson.M{
		"responderPhone": phone,
		"status":         models.StatusPending,
		"expiresAt":      bson.M{"$gt": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, filter, opts)
}

// FindOverdue lists pending requests whose deadline has passed
func (r *RequestDatabase) FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.DispatchRequest, error) {
	filter := bson.M{
		"status":    models.StatusPending,
		"expiresAt": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.D{{Key: "expiresAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

// FindUnresolved lists declined or expired requests whose follow-up never
// completed and that were last touched before the cutoff
func (r *RequestDatabase) FindUnresolved(ctx context.Context, before time.Time, limit int) ([]models.DispatchRequest, error) {
	filter := bson.M{
		"status":       bson.M{"$in": []models.RequestStatus{models.StatusDeclined, models.StatusExpired}},
		"chainOutcome": models.OutcomeUnresolved,
		"updatedAt":    bson.M{"$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

// SetChainOutcome records how a declined or expired request was followed up
func (r *RequestDatabase) SetChainOutcome(ctx context.Context, id string, outcome models.ChainOutcome) error {
	res, err := r.db.Collection(requestName).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"chainOutcome": outcome}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return dispatch.ErrNotFound
	}
	return nil
}

func (r *RequestDatabase) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.DispatchRequest, error) {
	var reqs []models.DispatchRequest
	cr, err := r.db.Collection(requestName).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if err := cr.Decode(&reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}
