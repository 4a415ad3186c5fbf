package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarEhab007/notification-hub/internal/topic"
)

func TestNewFromStrings(t *testing.T) {
	m, err := NewFromStrings("Odometry", "  1.0,2.0,3.0  ")
	require.NoError(t, err)
	assert.Equal(t, "odometry", m.Topic.String())
	assert.Equal(t, "1.0,2.0,3.0", m.Payload.String())
	assert.NotZero(t, m.Timestamp)
}

func TestNewFromStrings_InvalidTopic(t *testing.T) {
	_, err := NewFromStrings("invalid topic!", "data")
	assert.ErrorIs(t, err, topic.ErrInvalidName)
}

func TestMessage_EncodeDecodeRoundTrip(t *testing.T) {
	m, err := NewFromStrings("odometry", "1,2,3")
	require.NoError(t, err)

	data, err := m.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, m.Equal(decoded))
	assert.Equal(t, m.Timestamp, decoded.Timestamp)
}

func TestMessage_DecodeString(t *testing.T) {
	decoded, err := DecodeString(`{"topic":"odometry","timestamp":1.5,"payload":"1,2,3"}`)
	require.NoError(t, err)
	assert.Equal(t, "odometry", decoded.Topic.String())
	assert.Equal(t, "1,2,3", decoded.Payload.String())
}

func TestMessage_EqualIgnoresTimestamp(t *testing.T) {
	a := New(topic.MustNew("t1"), topic.NewPayload("x"))
	b := Message{Topic: a.Topic, Timestamp: a.Timestamp + 1000, Payload: a.Payload}
	assert.True(t, a.Equal(b))
}

func TestSubscriberID_Unique(t *testing.T) {
	a := NewSubscriberID()
	b := NewSubscriberID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a.String())
}
