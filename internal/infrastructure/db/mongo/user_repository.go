package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/relaychat/relay-api/internal/core/domain"
)

const usersCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// mongoUser is the stored document. Role is decoded loosely so a corrupted
// value reaches the login role check instead of failing the whole lookup.
type mongoUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Password  []byte             `bson:"password,omitempty"`
	Role      any                `bson:"role"`
	CreatedAt int64              `bson:"created_at,omitempty"`
}

// EnsureIndexes creates the unique username index that backs duplicate
// detection on insert.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("username_unique"),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	res, err := r.coll.InsertOne(ctx, mongoUser{
		Username:  created.Username,
		Password:  created.PasswordHash,
		Role:      string(created.Role),
		CreatedAt: created.CreatedAt.Unix(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// List returns up to limit records without the internal id or password hash.
func (r *UserRepository) List(ctx context.Context, limit int64) ([]*domain.User, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "password": 0}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

func (mu mongoUser) toDomain() *domain.User {
	u := &domain.User{
		Username:     mu.Username,
		PasswordHash: mu.Password,
		Role:         roleOf(mu.Role),
		CreatedAt:    unixToTime(mu.CreatedAt),
	}
	if !mu.ID.IsZero() {
		u.ID = mu.ID.Hex()
	}
	return u
}

// roleOf maps a stored role to domain.Role. Anything that is not a string
// becomes the empty role, which never passes Role.Valid.
func roleOf(v any) domain.Role {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return domain.Role(s)
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
