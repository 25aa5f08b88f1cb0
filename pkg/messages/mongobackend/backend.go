package mongobackend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/storedmessages/pkg/messages"
)

// Name is the origin of messages created by this backend.
const Name = "mongo"

const (
	messagesCollection = "messages"
	inboxCollection    = "inbox"
	archiveCollection  = "archive"
	countersCollection = "counters"

	messageCounter = "message_id"
	entryCounter   = "entry_seq"
)

// messageDoc stores the date as Unix microseconds: BSON datetimes only keep
// milliseconds.
type messageDoc struct {
	ID     int64  `bson:"_id"`
	Level  int    `bson:"level"`
	Text   string `bson:"text"`
	URL    string `bson:"url,omitempty"`
	Tags   string `bson:"tags,omitempty"`
	DateUS int64  `bson:"date_us"`
}

type entryDoc struct {
	UserID    int64 `bson:"user_id"`
	MessageID int64 `bson:"message_id"`
	Seq       int64 `bson:"seq"`
}

// Backend stores messages as documents and inbox/archive membership as
// entry documents ordered by a per-store sequence number.
type Backend struct {
	messages *mongo.Collection
	inbox    *mongo.Collection
	archive  *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

// New creates a backend on db and ensures its indexes exist.
func New(ctx context.Context, db *mongo.Database) (*Backend, error) {
	b := &Backend{
		messages: db.Collection(messagesCollection),
		inbox:    db.Collection(inboxCollection),
		archive:  db.Collection(archiveCollection),
		counters: db.Collection(countersCollection),
		now:      time.Now,
	}

	if _, err := b.inbox.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "message_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "seq", Value: -1}}},
	}); err != nil {
		return nil, messages.StorageError(err)
	}
	if _, err := b.archive.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "seq", Value: -1}},
	}); err != nil {
		return nil, messages.StorageError(err)
	}

	return b, nil
}

func (b *Backend) Name() string { return Name }

func (b *Backend) next(ctx context.Context, counter string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := b.counters.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: counter}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, messages.StorageError(err)
	}
	return doc.Value, nil
}

func (b *Backend) CreateMessage(ctx context.Context, level messages.Level, text string, opts ...messages.MessageOption) (messages.Message, error) {
	if !level.Valid() {
		return messages.Message{}, fmt.Errorf("%w: %s", messages.ErrMessageTypeNotSupported, level)
	}

	id, err := b.next(ctx, messageCounter)
	if err != nil {
		return messages.Message{}, err
	}

	m, err := messages.NewMessage(id, level, text, b.now(), opts...)
	if err != nil {
		return messages.Message{}, err
	}

	if _, err := b.messages.InsertOne(ctx, toDoc(m)); err != nil {
		return messages.Message{}, messages.StorageError(err)
	}
	return m.WithOrigin(Name), nil
}

func (b *Backend) CanHandle(v any) bool {
	return messages.CanHandle(Name, v)
}

// InboxStore upserts one entry per user with an ordered bulk write.
// Without a replica-set transaction the write is not atomic: the first
// failing recipient stops the batch and the returned error carries the
// bulk write exception naming it.
func (b *Backend) InboxStore(ctx context.Context, users []messages.UserID, msg any) error {
	return b.store(ctx, b.inbox, users, msg, func(e entryDoc) mongo.WriteModel {
		return mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "user_id", Value: e.UserID}, {Key: "message_id", Value: e.MessageID}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{{Key: "seq", Value: e.Seq}}}}).
			SetUpsert(true)
	})
}

// ArchiveStore inserts one entry per user with an ordered bulk write.
func (b *Backend) ArchiveStore(ctx context.Context, users []messages.UserID, msg any) error {
	return b.store(ctx, b.archive, users, msg, func(e entryDoc) mongo.WriteModel {
		return mongo.NewInsertOneModel().SetDocument(e)
	})
}

func (b *Backend) store(ctx context.Context, coll *mongo.Collection, users []messages.UserID, msg any, model func(entryDoc) mongo.WriteModel) error {
	m, err := messages.PrepareStore(b, users, msg)
	if err != nil {
		return err
	}
	users = messages.Unique(users)
	if len(users) == 0 {
		return nil
	}

	seq, err := b.next(ctx, entryCounter)
	if err != nil {
		return err
	}

	models := make([]mongo.WriteModel, 0, len(users))
	for _, u := range users {
		models = append(models, model(entryDoc{UserID: int64(u), MessageID: m.ID, Seq: seq}))
	}

	if _, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return messages.StorageError(err)
	}
	return nil
}

func (b *Backend) InboxList(ctx context.Context, user messages.UserID) ([]messages.Message, error) {
	return b.list(ctx, b.inbox, user)
}

func (b *Backend) ArchiveList(ctx context.Context, user messages.UserID) ([]messages.Message, error) {
	return b.list(ctx, b.archive, user)
}

func (b *Backend) list(ctx context.Context, coll *mongo.Collection, user messages.UserID) ([]messages.Message, error) {
	if user.IsAnonymous() {
		return []messages.Message{}, nil
	}

	cursor, err := coll.Aggregate(ctx, listPipeline(user))
	if err != nil {
		return nil, messages.StorageError(err)
	}

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, messages.StorageError(err)
	}

	out := make([]messages.Message, 0, len(docs))
	for _, d := range docs {
		m, err := fromDoc(d)
		if err != nil {
			return nil, messages.StorageError(err)
		}
		out = append(out, m)
	}
	return out, nil
}

// listPipeline selects the user's entries newest first and replaces each one
// with the message document it points to.
func listPipeline(user messages.UserID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: int64(user)}}}},
		{{Key: "$sort", Value: bson.D{{Key: "seq", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: messagesCollection},
			{Key: "localField", Value: "message_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "message"},
		}}},
		{{Key: "$unwind", Value: "$message"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$message"}}}},
	}
}

func (b *Backend) InboxGet(ctx context.Context, user messages.UserID, id int64) (messages.Message, error) {
	if user.IsAnonymous() {
		return messages.Message{}, messages.ErrMessageDoesNotExist
	}

	err := b.inbox.FindOne(ctx, bson.D{{Key: "user_id", Value: int64(user)}, {Key: "message_id", Value: id}}).Err()
	if err != nil {
		return messages.Message{}, notFound(err)
	}

	var doc messageDoc
	if err := b.messages.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return messages.Message{}, notFound(err)
	}

	m, err := fromDoc(doc)
	if err != nil {
		return messages.Message{}, messages.StorageError(err)
	}
	return m, nil
}

func (b *Backend) InboxDelete(ctx context.Context, user messages.UserID, id int64) error {
	res, err := b.inbox.DeleteOne(ctx, bson.D{{Key: "user_id", Value: int64(user)}, {Key: "message_id", Value: id}})
	if err != nil {
		return messages.StorageError(err)
	}
	if res.DeletedCount == 0 {
		return messages.ErrMessageDoesNotExist
	}
	return nil
}

func (b *Backend) InboxPurge(ctx context.Context, user messages.UserID) error {
	if user.IsAnonymous() {
		return nil
	}
	_, err := b.inbox.DeleteMany(ctx, bson.D{{Key: "user_id", Value: int64(user)}})
	return messages.StorageError(err)
}

// Flush removes every document of the backend's collections, counters included.
func (b *Backend) Flush(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{b.inbox, b.archive, b.messages, b.counters} {
		if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
			return messages.StorageError(err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return messages.ErrMessageDoesNotExist
	}
	return messages.StorageError(err)
}

func toDoc(m messages.Message) messageDoc {
	return messageDoc{
		ID:     m.ID,
		Level:  int(m.Level),
		Text:   m.Text,
		URL:    m.URL,
		Tags:   m.Tags,
		DateUS: m.Date.UnixMicro(),
	}
}

func fromDoc(d messageDoc) (messages.Message, error) {
	m, err := messages.NewMessage(d.ID, messages.Level(d.Level), d.Text, time.UnixMicro(d.DateUS),
		messages.WithURL(d.URL), messages.WithTags(d.Tags))
	if err != nil {
		return messages.Message{}, err
	}
	return m.WithOrigin(Name), nil
}
