package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const lockName = "scheduler_locks"

// LockDatabase keeps named job locks in mongo for deployments without redis
type LockDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewLockDatabase initializes a new instance of lock database with the provided db connection
func NewLockDatabase(db DatabaseHelper) *LockDatabase {
	return &LockDatabase{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// TryAcquireLock takes the lock for owner until ttl passes. It succeeds when the
// lock is free, expired, or already held by owner. A competing upsert on the
// same _id fails with a duplicate key, which means someone else holds it.
func (l *LockDatabase) TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := l.now()
	filter := bson.M{
		"_id": name,
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$lte": now}},
			bson.M{"owner": owner},
		},
	}
	update := bson.M{"$set": bson.M{
		"owner":      owner,
		"acquiredAt": now,
		"expiresAt":  now.Add(ttl),
	}}
	_, err := l.db.Collection(lockName).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseLock expires the lock if owner still holds it
func (l *LockDatabase) ReleaseLock(ctx context.Context, name, owner string) error {
	_, err := l.db.Collection(lockName).UpdateOne(ctx,
		bson.M{"_id": name, "owner": owner},
		bson.M{"$set": bson.M{"expiresAt": time.Unix(0, 0).UTC()}},
	)
	return err
}
