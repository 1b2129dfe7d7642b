package queue

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublishing(t *testing.T) {
	msg, err := newPublishing(ProfileUpdated{UserID: "u1", Collection: "skills", Op: "create"}, "req-1")
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.NotEmpty(t, msg.MessageId)
	assert.Equal(t, "req-1", msg.Headers["X-Request-ID"])

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "skills", got["collection"])
	assert.NotContains(t, got, "item_id")
}

func TestNewPublishing_Unencodable(t *testing.T) {
	_, err := newPublishing(make(chan int), "")
	assert.Error(t, err)
}

func TestNilRabbitIsNoop(t *testing.T) {
	var p *RabbitPublisher
	assert.NoError(t, p.Publish(context.Background(), KeyUserLoggedIn, UserLoggedIn{}, ""))
	assert.NoError(t, p.Close())
	assert.NoError(t, NewNoop().Publish(context.Background(), KeyUserRegistered, nil, ""))
}

type recAck struct{ acked, nacked, requeued bool }

func (r *recAck) Ack(bool) error {
	r.acked = true
	return nil
}

func (r *recAck) Nack(_ bool, requeue bool) error {
	r.nacked, r.requeued = true, requeue
	return nil
}

func TestSettle(t *testing.T) {
	ok := &recAck{}
	settleWith(ok, false, nil)
	assert.True(t, ok.acked)

	drop := &recAck{}
	settleWith(drop, false, ErrDrop)
	assert.True(t, drop.acked)

	retry := &recAck{}
	settleWith(retry, false, assert.AnError)
	assert.True(t, retry.nacked)
	assert.True(t, retry.requeued)

	giveUp := &recAck{}
	settleWith(giveUp, true, assert.AnError)
	assert.True(t, giveUp.nacked)
	assert.False(t, giveUp.requeued)
}
