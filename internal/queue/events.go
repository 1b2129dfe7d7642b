package queue

import (
	"context"
	"time"
)

// Routing keys on the events exchange.
const (
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyProfileUpdated = "profile.updated"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(context.Context, string, any, string) error { return nil }
func (NoopPub) Close() error                                       { return nil }

type UserRegistered struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	At     time.Time `json:"at"`
}

type UserLoggedIn struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Method string    `json:"method"` // password, refresh or google
	At     time.Time `json:"at"`
}

// ProfileUpdated is emitted after any write to the profile aggregate.
type ProfileUpdated struct {
	UserID     string    `json:"user_id"`
	Collection string    `json:"collection,omitempty"`
	Op         string    `json:"op"` // update, picture, create, replace or delete
	ItemID     string    `json:"item_id,omitempty"`
	At         time.Time `json:"at"`
}
