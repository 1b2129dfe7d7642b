package repo

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RefreshToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	TokenHash string             `bson:"token_hash"` // sha256 of the plain token
	ExpiresAt time.Time          `bson:"expires_at"`
	Revoked   bool               `bson:"revoked"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (s *Store) ensureRefreshIndexes(ctx context.Context) error {
	_, err := s.refresh.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	return err
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *Store) SaveRefresh(ctx context.Context, userID primitive.ObjectID, plain string, ttl time.Duration) (err error) {
	sp, ctx := startSpan(ctx, "mongo.refresh.insert")
	defer func() { finish(sp, err) }()

	now := time.Now().UTC()
	_, err = s.refresh.InsertOne(ctx, RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(plain),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	return err
}

// ConsumeRefresh revokes a live token and returns it, so each token rotates exactly once.
// Returns nil, nil for unknown, expired or already used tokens.
func (s *Store) ConsumeRefresh(ctx context.Context, plain string) (rt *RefreshToken, err error) {
	sp, ctx := startSpan(ctx, "mongo.refresh.consume")
	defer func() { finish(sp, err) }()

	now := time.Now().UTC()
	var out RefreshToken
	err = s.refresh.FindOneAndUpdate(ctx,
		bson.M{
			"token_hash": hashToken(plain),
			"revoked":    false,
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"revoked": true}},
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) RevokeRefresh(ctx context.Context, plain string) (err error) {
	sp, ctx := startSpan(ctx, "mongo.refresh.revoke")
	defer func() { finish(sp, err) }()

	_, err = s.refresh.UpdateOne(ctx,
		bson.M{"token_hash": hashToken(plain)},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	return err
}

// RevokeAllRefresh ends every session of a principal, used after a password reset.
func (s *Store) RevokeAllRefresh(ctx context.Context, userID primitive.ObjectID) (err error) {
	sp, ctx := startSpan(ctx, "mongo.refresh.revoke_all")
	defer func() { finish(sp, err) }()

	_, err = s.refresh.UpdateMany(ctx,
		bson.M{"user_id": userID, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	return err
}
