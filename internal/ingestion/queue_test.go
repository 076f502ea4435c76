package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueDropsIncomingWhenFull(t *testing.T) {
	q := NewQueue(2)

	require.True(t, q.TryEnqueue(Datagram{Payload: []byte("a")}))
	require.True(t, q.TryEnqueue(Datagram{Payload: []byte("b")}))
	require.False(t, q.TryEnqueue(Datagram{Payload: []byte("c")}))

	require.Equal(t, 2, q.Len())

	first := <-q.Chan()
	require.Equal(t, "a", string(first.Payload))
	second := <-q.Chan()
	require.Equal(t, "b", string(second.Payload))
}

func TestQueueRoundTrip(t *testing.T) {
	q := NewQueue(1)
	d := Datagram{Payload: []byte("x"), Peer: "1.2.3.4", ReceivedAt: time.Unix(0, 0)}
	require.True(t, q.TryEnqueue(d))
	got := <-q.Chan()
	require.Equal(t, d, got)
}
