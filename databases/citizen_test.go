package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/sos-dispatch-api/databases"
	"github.com/linesmerrill/sos-dispatch-api/databases/mocks"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

func TestCitizenDatabase_GetByPhone(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srMissing := &mocks.SingleResultHelper{}
	srErr := &mocks.SingleResultHelper{}

	srMissing.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	srErr.On("Decode", mock.Anything).Return(errors.New("mocked-error"))
	collectionHelper.On("FindOne", mock.Anything, bson.M{"phone": "+15551112222"}).Return(srMissing)
	collectionHelper.On("FindOne", mock.Anything, bson.M{"phone": "+15553334444"}).Return(srErr)
	dbHelper.On("Collection", "citizens").Return(collectionHelper)

	db := databases.NewCitizenDatabase(dbHelper)
	c, err := db.GetByPhone(context.Background(), "+15551112222")
	assert.NoError(t, err)
	assert.Nil(t, c)

	_, err = db.GetByPhone(context.Background(), "+15553334444")
	assert.EqualError(t, err, "mocked-error")
}

func TestCitizenDatabase_UpsertAndUpdate(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srOK := &mocks.SingleResultHelper{}
	srMissing := &mocks.SingleResultHelper{}

	srOK.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		c := args.Get(0).(*models.Citizen)
		c.Phone = "+15551112222"
		c.PhoneVerified = true
	})
	srMissing.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	collectionHelper.On("FindOneAndUpdate", mock.Anything, bson.M{"phone": "+15551112222"}, mock.Anything, mock.Anything).Return(srOK)
	collectionHelper.On("FindOneAndUpdate", mock.Anything, bson.M{"phone": "+15553334444"}, mock.Anything, mock.Anything).Return(srMissing)
	dbHelper.On("Collection", "citizens").Return(collectionHelper)

	db := databases.NewCitizenDatabase(dbHelper)
	c, err := db.UpsertVerified(context.Background(), "+15551112222")
	require.NoError(t, err)
	assert.True(t, c.PhoneVerified)

	c, err = db.UpdateProfile(context.Background(), &models.Citizen{Phone: "+15551112222", BloodGroup: "A-"})
	require.NoError(t, err)
	set := collectionHelper.Calls[1].Arguments.Get(2).(bson.M)["$set"].(bson.M)
	assert.Equal(t, "A-", set["bloodGroup"])
	assert.NotContains(t, set, "phoneVerified")

	_, err = db.UpdateProfile(context.Background(), &models.Citizen{Phone: "+15553334444"})
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
}

func TestEnsureIndexes(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	indexHelper := &mocks.IndexHelper{}

	indexHelper.On("CreateMany", mock.Anything, mock.Anything).Return([]string{"idx"}, nil)
	collectionHelper.On("Indexes").Return(indexHelper)
	dbHelper.On("Collection", mock.Anything).Return(collectionHelper)

	require.NoError(t, databases.EnsureIndexes(context.Background(), dbHelper))
	dbHelper.AssertCalled(t, "Collection", "responders")
	dbHelper.AssertCalled(t, "Collection", "dispatch_requests")
	dbHelper.AssertCalled(t, "Collection", "citizens")
	indexHelper.AssertNumberOfCalls(t, "CreateMany", 3)
}

func TestEnsureIndexesError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	indexHelper := &mocks.IndexHelper{}

	indexHelper.On("CreateMany", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))
	collectionHelper.On("Indexes").Return(indexHelper)
	dbHelper.On("Collection", mock.Anything).Return(collectionHelper)

	err := databases.EnsureIndexes(context.Background(), dbHelper)
	assert.ErrorContains(t, err, "mocked-error")
}
