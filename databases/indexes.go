package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// indexes lists the indexes each collection needs. The responders location
// index backs $geoNear; purgeAt is a TTL index for finished requests.
var indexes = map[string][]mongo.IndexModel{
	responderName: {
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "availability", Value: 1}}},
	},
	requestName: {
		{Keys: bson.D{{Key: "responderPhone", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "chainOutcome", Value: 1}, {Key: "updatedAt", Value: 1}}},
		{Keys: bson.D{{Key: "chainId", Value: 1}, {Key: "hop", Value: 1}}},
		{Keys: bson.D{{Key: "citizenLocation", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "purgeAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	},
	citizenName: {
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates every index the dispatch collections rely on
func EnsureIndexes(ctx context.Context, db DatabaseHelper) error {
	for _, name := range []string{responderName, requestName, citizenName} {
		created, err := db.Collection(name).Indexes().CreateMany(ctx, indexes[name])
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
		zap.S().Debugw("indexes ensured", "collection", name, "indexes", created)
	}
	return nil
}
