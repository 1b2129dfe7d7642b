package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

const PurposeReset = "reset"

type EmailToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Token     string             `bson:"token"` // sha256 of the mailed token
	Purpose   string             `bson:"purpose"`
	ExpiresAt time.Time          `bson:"expires_at"`
	UsedAt    *time.Time         `bson:"used_at,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (s *Store) ensureEmailTokenIndexes(ctx context.Context) error {
	_, err := s.emailTokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

func (s *Store) CreateEmailToken(ctx context.Context, userID primitive.ObjectID, plain, purpose string, ttl time.Duration) (err error) {
	sp, ctx := startSpan(ctx, "mongo.email_token.insert", tracer.Tag("purpose", purpose))
	defer func() { finish(sp, err) }()

	now := time.Now().UTC()
	_, err = s.emailTokens.InsertOne(ctx, EmailToken{
		UserID:    userID,
		Token:     hashToken(plain),
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	return err
}

// UseEmailToken marks a live token as used and returns it. ErrNotFound when the token is
// unknown, expired or spent.
func (s *Store) UseEmailToken(ctx context.Context, plain, purpose string) (et *EmailToken, err error) {
	sp, ctx := startSpan(ctx, "mongo.email_token.consume", tracer.Tag("purpose", purpose))
	defer func() { finish(sp, err) }()

	now := time.Now().UTC()
	var out EmailToken
	err = s.emailTokens.FindOneAndUpdate(ctx,
		bson.M{
			"token":      hashToken(plain),
			"purpose":    purpose,
			"used_at":    bson.M{"$exists": false},
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"used_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
