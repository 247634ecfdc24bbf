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

const responderName = "responders"

// ResponderDatabase is the mongo backed responder directory
type ResponderDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewResponderDatabase initializes a new instance of responder database with the provided db connection
func NewResponderDatabase(db DatabaseHelper) *ResponderDatabase {
	return &ResponderDatabase{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

type nearResponder struct {
	models.Responder `bson:",inline"`
	DistanceMeters   float64 `bson:"distanceMeters"`
}

// FindNearestAvailable runs a $geoNear over the location index, keeping only
// ready, verified responders of kind that are not excluded.
func (r *ResponderDatabase) FindNearestAvailable(ctx context.Context, kind models.ResponderKind, point models.GeoPoint, maxRadiusMeters float64, exclude []string) (*models.Candidate, error) {
	caps, ok := models.CapabilitiesFor(kind)
	if !ok {
		return nil, dispatch.ErrInvalidInput
	}
	if exclude == nil {
		exclude = []string{}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.D{
			{Key: "near", Value: point},
			{Key: "key", Value: "location"},
			{Key: "distanceField", Value: "distanceMeters"},
			{Key: "maxDistance", Value: maxRadiusMeters},
			{Key: "spherical", Value: true},
			{Key: "query", Value: bson.M{
				"kind":          kind,
				"availability":  caps.Ready,
				"phoneVerified": true,
				"phone":         bson.M{"$nin": exclude},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "distanceMeters", Value: 1}, {Key: "phone", Value: 1}}}},
		{{Key: "$limit", Value: 1}},
	}

	cr, err := r.db.Collection(responderName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var found []nearResponder
	if err := cr.Decode(&found); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &models.Candidate{Responder: found[0].Responder, DistanceMeters: found[0].DistanceMeters}, nil
}

// UpdateAvailability sets availability and, when given, the location. It never
// touches dispatch requests.
func (r *ResponderDatabase) UpdateAvailability(ctx context.Context, kind models.ResponderKind, phone string, state models.Availability, location *models.GeoPoint) error {
	caps, ok := models.CapabilitiesFor(kind)
	if !ok || !caps.Allows(state) {
		return dispatch.ErrInvalidInput
	}
	now := r.now()
	set := bson.M{
		"availability": state,
		"lastStatusAt": now,
		"updatedAt":    now,
	}
	if location != nil {
		if !location.Valid() {
			return dispatch.ErrInvalidInput
		}
		set["location"] = location
	}
	res, err := r.db.Collection(responderName).UpdateOne(ctx, bson.M{"kind": kind, "phone": phone}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return dispatch.ErrNotFound
	}
	return nil
}

// GetByPhone returns nil when the responder does not exist
func (r *ResponderDatabase) GetByPhone(ctx context.Context, kind models.ResponderKind, phone string) (*models.Responder, error) {
	resp := &models.Responder{}
	err := r.db.Collection(responderName).FindOne(ctx, bson.M{"kind": kind, "phone": phone}).Decode(resp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpsertVerified marks the phone verified, creating the responder in its
// kind's off state on first verification.
func (r *ResponderDatabase) UpsertVerified(ctx context.Context, kind models.ResponderKind, phone string) (*models.Responder, error) {
	caps, ok := models.CapabilitiesFor(kind)
	if !ok {
		return nil, dispatch.ErrInvalidInput
	}
	now := r.now()
	update := bson.M{
		"$set": bson.M{"phoneVerified": true, "updatedAt": now},
		"$setOnInsert": bson.M{
			"availability": caps.Off,
			"createdAt":    now,
			"lastStatusAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	resp := &models.Responder{}
	err := r.db.Collection(responderName).FindOneAndUpdate(ctx, bson.M{"kind": kind, "phone": phone}, update, opts).Decode(resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateProfile replaces the officer or ambulance profile of an existing responder
func (r *ResponderDatabase) UpdateProfile(ctx context.Context, in *models.Responder) (*models.Responder, error) {
	update := bson.M{"$set": bson.M{
		"officer":   in.Officer,
		"ambulance": in.Ambulance,
		"updatedAt": r.now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	resp := &models.Responder{}
	err := r.db.Collection(responderName).FindOneAndUpdate(ctx, bson.M{"kind": in.Kind, "phone": in.Phone}, update, opts).Decode(resp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, dispatch.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
