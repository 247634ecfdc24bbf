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

const citizenName = "citizens"

// CitizenDatabase is the mongo backed citizen profile store
type CitizenDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewCitizenDatabase initializes a new instance of citizen database with the provided db connection
func NewCitizenDatabase(db DatabaseHelper) *CitizenDatabase {
	return &CitizenDatabase{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// GetByPhone returns nil when the citizen does not exist
func (c *CitizenDatabase) GetByPhone(ctx context.Context, phone string) (*models.Citizen, error) {
	citizen := &models.Citizen{}
	err := c.db.Collection(citizenName).FindOne(ctx, bson.M{"phone": phone}).Decode(citizen)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return citizen, nil
}

// UpsertVerified marks the phone verified, creating the citizen on first verification
func (c *CitizenDatabase) UpsertVerified(ctx context.Context, phone string) (*models.Citizen, error) {
	now := c.now()
	update := bson.M{
		"$set":         bson.M{"phoneVerified": true, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	citizen := &models.Citizen{}
	if err := c.db.Collection(citizenName).FindOneAndUpdate(ctx, bson.M{"phone": phone}, update, opts).Decode(citizen); err != nil {
		return nil, err
	}
	return citizen, nil
}

// UpdateProfile replaces the profile fields of an existing citizen
func (c *CitizenDatabase) UpdateProfile(ctx context.Context, in *models.Citizen) (*models.Citizen, error) {
	update := bson.M{"$set": bson.M{
		"name":              in.Name,
		"dob":               in.DOB,
		"bloodGroup":        in.BloodGroup,
		"allergies":         in.Allergies,
		"medicalConditions": in.MedicalConditions,
		"medications":       in.Medications,
		"specialNeeds":      in.SpecialNeeds,
		"emergencyContacts": in.EmergencyContacts,
		"homeAddress":       in.HomeAddress,
		"photoUrl":          in.PhotoURL,
		"updatedAt":         c.now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	citizen := &models.Citizen{}
	err := c.db.Collection(citizenName).FindOneAndUpdate(ctx, bson.M{"phone": in.Phone}, update, opts).Decode(citizen)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, dispatch.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return citizen, nil
}
