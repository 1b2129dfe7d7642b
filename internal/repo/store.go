package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

const (
	colUsers       = "users"
	colRefresh     = "refresh_tokens"
	colEmailTokens = "email_tokens"
)

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	users       *mongo.Collection
	refresh     *mongo.Collection
	emailTokens *mongo.Collection
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	db := cli.Database(dbname)
	return &Store{
		Client:      cli,
		DB:          db,
		users:       db.Collection(colUsers),
		refresh:     db.Collection(colRefresh),
		emailTokens: db.Collection(colEmailTokens),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// EnsureIndexes creates every index the store relies on. Safe to call on each start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("role_id"),
		},
	})
	if err != nil {
		return err
	}
	if err := s.ensureRefreshIndexes(ctx); err != nil {
		return err
	}
	return s.ensureEmailTokenIndexes(ctx)
}

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

func startSpan(ctx context.Context, name string, opts ...ddtrace.StartSpanOption) (ddtrace.Span, context.Context) {
	opts = append(opts, tracer.SpanType("mongodb"), tracer.ResourceName(name))
	return tracer.StartSpanFromContext(ctx, name, opts...)
}

func finish(sp ddtrace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		sp.Finish(tracer.WithError(err))
		return
	}
	sp.Finish()
}
