package mongo

import (
	"testing"

	"slotbook/internal/bookings/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCollectionsCoverStore(t *testing.T) {
	defs := collections()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
		assert.NotEmpty(t, def.Indexes, def.Name)
		assert.Contains(t, def.Validator, "$jsonSchema", def.Name)
	}
	assert.ElementsMatch(t, []string{
		repository.DoctorsCollection,
		repository.SlotsCollection,
		repository.BookingsCollection,
	}, names)
}

func TestBookingsSlotIndexIsUnique(t *testing.T) {
	require.Len(t, BookingsIndexes, 1)
	idx := BookingsIndexes[0]
	assert.Equal(t, bson.D{{Key: "slot_id", Value: 1}}, idx.Keys)
	require.NotNil(t, idx.Options)
	require.NotNil(t, idx.Options.Unique)
	assert.True(t, *idx.Options.Unique)
}

func TestStaleLockScanIsIndexed(t *testing.T) {
	var found bool
	for _, idx := range SlotsIndexes {
		if assert.ObjectsAreEqual(bson.D{{Key: "status", Value: 1}, {Key: "locked_at", Value: 1}}, idx.Keys) {
			found = true
		}
	}
	assert.True(t, found)
}
