package mongobackend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
)

func TestListPipeline(t *testing.T) {
	t.Parallel()

	p := listPipeline(42)
	require.Len(t, p, 5)

	stages := make([]string, len(p))
	for i, stage := range p {
		require.Len(t, stage, 1)
		stages[i] = stage[0].Key
	}
	assert.Equal(t, []string{"$match", "$sort", "$lookup", "$unwind", "$replaceRoot"}, stages)

	assert.Equal(t, bson.D{{Key: "user_id", Value: int64(42)}}, p[0][0].Value)
	assert.Equal(t, bson.D{{Key: "seq", Value: -1}, {Key: "_id", Value: -1}}, p[1][0].Value,
		"newest entry first, ties broken by insertion order")

	lookup, ok := p[2][0].Value.(bson.D)
	require.True(t, ok)
	assert.Contains(t, lookup, bson.E{Key: "from", Value: messagesCollection})
	assert.Contains(t, lookup, bson.E{Key: "localField", Value: "message_id"})
	assert.Contains(t, lookup, bson.E{Key: "foreignField", Value: "_id"})
}

func TestMessageDoc_RoundTrip(t *testing.T) {
	t.Parallel()

	m, err := messages.NewMessage(7, messages.LevelWarning, "quota", time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC),
		messages.WithURL("/quota"), messages.WithTags("billing"))
	require.NoError(t, err)

	data, err := bson.Marshal(toDoc(m))
	require.NoError(t, err)

	var doc messageDoc
	require.NoError(t, bson.Unmarshal(data, &doc))

	got, err := fromDoc(doc)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))
	assert.Equal(t, Name, got.Origin())
}
