package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalHub_RoomScoped(t *testing.T) {
	hub := NewLocalHub()
	var a, b []string
	unsubA, err := hub.Subscribe("m1", func(p []byte) { a = append(a, string(p)) })
	require.NoError(t, err)
	_, err = hub.Subscribe("m2", func(p []byte) { b = append(b, string(p)) })
	require.NoError(t, err)

	require.NoError(t, hub.Publish("m1", []byte("s1")))
	require.NoError(t, hub.Publish("m2", []byte("s2")))
	assert.Equal(t, []string{"s1"}, a)
	assert.Equal(t, []string{"s2"}, b)

	unsubA()
	unsubA()
	require.NoError(t, hub.Publish("m1", []byte("s3")))
	assert.Equal(t, []string{"s1"}, a)
}

func TestLocalHub_Closed(t *testing.T) {
	hub := NewLocalHub()
	require.NoError(t, hub.Close())
	assert.ErrorIs(t, hub.Publish("m1", nil), ErrNotConnected)
	_, err := hub.Subscribe("m1", func([]byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)
}
