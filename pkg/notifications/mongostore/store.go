// Package mongostore persists notifications in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

// DefaultCollection is the collection name used by NewStore.
const DefaultCollection = "notifications"

type document struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	Type      string     `bson:"type"`
	Title     string     `bson:"title"`
	Message   string     `bson:"message"`
	Read      bool       `bson:"read"`
	ReadAt    *time.Time `bson:"read_at,omitempty"`
	ActionURL string     `bson:"action_url"`
	CreatedAt time.Time  `bson:"created_at"`
}

func fromNotification(n notifications.Notification) document {
	return document{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		ActionURL: n.ActionURL,
		CreatedAt: n.CreatedAt,
	}
}

func (d document) notification() notifications.Notification {
	n := notifications.Notification{
		ID:        d.ID,
		UserID:    d.UserID,
		Type:      notifications.Type(d.Type),
		Title:     d.Title,
		Message:   d.Message,
		Read:      d.Read,
		ActionURL: d.ActionURL,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.ReadAt != nil {
		at := d.ReadAt.UTC()
		n.ReadAt = &at
	}
	return n
}

// Store implements notifications.Storage on a single collection.
type Store struct {
	coll *mongo.Collection
}

var _ notifications.Storage = (*Store)(nil)

// NewStore uses the DefaultCollection of db.
func NewStore(db *mongo.Database) *Store {
	return NewStoreWithCollection(db.Collection(DefaultCollection))
}

// NewStoreWithCollection uses coll instead of the default collection. Handy
// for tests that isolate data per run.
func NewStoreWithCollection(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// EnsureIndexes creates the indexes the list and count queries rely on.
// It is safe to call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, n notifications.Notification) (notifications.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	// BSON dates carry milliseconds.
	n.CreatedAt = n.CreatedAt.Truncate(time.Millisecond)

	if _, err := s.coll.InsertOne(ctx, fromNotification(n)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return notifications.Notification{}, fmt.Errorf("%w: duplicate id %q", notifications.ErrStorage, n.ID)
		}
		return notifications.Notification{}, err
	}
	return n, nil
}

func (s *Store) Get(ctx context.Context, id string) (notifications.Notification, error) {
	return decodeOne(s.coll.FindOne(ctx, bson.M{"_id": id}))
}

func (s *Store) List(ctx context.Context, userID string, opts notifications.ListOptions) ([]notifications.Notification, error) {
	filter := listFilter(opts)
	filter["user_id"] = userID
	return s.find(ctx, filter, opts)
}

func (s *Store) ListAll(ctx context.Context, opts notifications.ListOptions) ([]notifications.Notification, error) {
	return s.find(ctx, listFilter(opts), opts)
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
	return int(n), err
}

func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userID})
	return int(n), err
}

func (s *Store) MarkRead(ctx context.Context, id string) (notifications.Notification, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	// Pipeline update keeps an existing read_at.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "read", Value: true},
			{Key: "read_at", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$read_at", now}}}},
		}}},
	}
	return decodeOne(s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)))
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	cutoff := time.Now().UTC().Truncate(time.Millisecond)
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false, "created_at": bson.M{"$lte": cutoff}},
		bson.M{"$set": bson.M{"read": true, "read_at": cutoff}},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (s *Store) Update(ctx context.Context, id string, fields notifications.UpdateFields) (notifications.Notification, error) {
	set := bson.M{}
	if fields.Title != nil {
		set["title"] = *fields.Title
	}
	if fields.Message != nil {
		set["message"] = *fields.Message
	}
	if fields.ActionURL != nil {
		set["action_url"] = *fields.ActionURL
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	return decodeOne(s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)))
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts notifications.ListOptions) ([]notifications.Notification, error) {
	fo := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		fo.SetSkip(int64(opts.Offset))
	}

	cur, err := s.coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, err
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]notifications.Notification, len(docs))
	for i, d := range docs {
		out[i] = d.notification()
	}
	return out, nil
}

func listFilter(opts notifications.ListOptions) bson.M {
	filter := bson.M{}
	if opts.OnlyUnread {
		filter["read"] = false
	}
	if len(opts.Types) > 0 {
		types := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = string(t)
		}
		filter["type"] = bson.M{"$in": types}
	}
	return filter
}

func decodeOne(res *mongo.SingleResult) (notifications.Notification, error) {
	var d document
	if err := res.Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notifications.Notification{}, notifications.ErrNotFound
		}
		return notifications.Notification{}, err
	}
	return d.notification(), nil
}
