// Package mongo stores users as documents in a MongoDB collection.
//
// Each user is one document in the "users" collection; secrets are an array
// in that document, appended with $push so concurrent submissions never
// overwrite each other. A unique index on username and a unique sparse index
// on google_id enforce account uniqueness.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panyam/secrets"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

type userDocument struct {
	ID        bson.ObjectID `bson:"_id"`
	Username  string        `bson:"username"`
	Password  string        `bson:"password,omitempty"`
	GoogleID  string        `bson:"google_id,omitempty"`
	Secrets   []string      `bson:"secrets"`
	CreatedAt time.Time     `bson:"created_at"`
}

func (d *userDocument) toUser() *secrets.User {
	return &secrets.User{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Password:  d.Password,
		GoogleID:  d.GoogleID,
		Secrets:   d.Secrets,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// UserStore implements secrets.UserStore on MongoDB
type UserStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

// Connect opens a client for uri and uses the named database
func Connect(ctx context.Context, uri, database string) (*UserStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	store := NewUserStore(client, client.Database(database))
	if err := store.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

func NewUserStore(client *mongo.Client, db *mongo.Database) *UserStore {
	return &UserStore{client: client, users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the uniqueness indexes; it is safe to call repeatedly
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (s *UserStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *UserStore) CreateUser(ctx context.Context, user *secrets.User) error {
	doc := &userDocument{
		ID:       bson.NewObjectID(),
		Username: user.Username,
		Password: user.Password,
		GoogleID: user.GoogleID,
		Secrets:  []string{},
		// mongo keeps millisecond precision
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username %q: %w", user.Username, secrets.ErrAlreadyExists)
		}
		return err
	}
	user.ID = doc.ID.Hex()
	user.CreatedAt = doc.CreatedAt
	return nil
}

func (s *UserStore) GetUserById(ctx context.Context, userId string) (*secrets.User, error) {
	oid, err := bson.ObjectIDFromHex(userId)
	if err != nil {
		return nil, secrets.ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*secrets.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserStore) GetUserByGoogleId(ctx context.Context, googleId string) (*secrets.User, error) {
	if googleId == "" {
		return nil, secrets.ErrNotFound
	}
	return s.findOne(ctx, bson.M{"google_id": googleId})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*secrets.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, secrets.ErrNotFound
		}
		return nil, err
	}
	return doc.toUser(), nil
}

func (s *UserStore) AppendSecret(ctx context.Context, userId string, secret string) error {
	oid, err := bson.ObjectIDFromHex(userId)
	if err != nil {
		return secrets.ErrNotFound
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"secrets": secret}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return secrets.ErrNotFound
	}
	return nil
}

func (s *UserStore) ListUsersWithSecrets(ctx context.Context) ([]*secrets.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.users.Find(ctx, bson.M{"secrets.0": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*secrets.User, len(docs))
	for i := range docs {
		out[i] = docs[i].toUser()
	}
	return out, nil
}
