package network

import (
	"testing"

	"github.com/hopper1357/VTT/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chat(t *testing.T, text string) api.Envelope {
	t.Helper()
	env, err := api.NewEnvelope(api.TypeChat, text)
	require.NoError(t, err)
	return env
}

func TestSendToKeepsOrder(t *testing.T) {
	b := NewBroadcaster(4)
	ch := b.Register("c1")

	for _, s := range []string{"a", "b", "c"} {
		require.True(t, b.SendTo("c1", chat(t, s)))
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := (<-ch).Text()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSendToUnknownClient(t *testing.T) {
	b := NewBroadcaster(1)
	assert.False(t, b.SendTo("ghost", chat(t, "hi")))
}

func TestBroadcastReportsOverflow(t *testing.T) {
	b := NewBroadcaster(1)
	fast := b.Register("fast")
	b.Register("slow")

	assert.Empty(t, b.Broadcast(chat(t, "one"), ""))
	<-fast

	overflow := b.Broadcast(chat(t, "two"), "")
	assert.Equal(t, []string{"slow"}, overflow)
}

func TestBroadcastSkipsExcluded(t *testing.T) {
	b := NewBroadcaster(2)
	a := b.Register("a")
	other := b.Register("b")

	b.Broadcast(chat(t, "joined"), "a")

	assert.Len(t, a, 0)
	assert.Len(t, other, 1)
}

func TestUnregisterClosesChannel(t *testing.T) {
	b := NewBroadcaster(1)
	ch := b.Register("c1")

	assert.True(t, b.Unregister("c1"))
	assert.False(t, b.Unregister("c1"))

	_, open := <-ch
	assert.False(t, open)
	assert.False(t, b.HasSubscriber("c1"))
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestRegisterTwiceReplacesChannel(t *testing.T) {
	b := NewBroadcaster(1)
	first := b.Register("c1")
	second := b.Register("c1")

	_, open := <-first
	assert.False(t, open)

	require.True(t, b.SendTo("c1", chat(t, "x")))
	assert.Len(t, second, 1)
}

func TestCloseClosesEverything(t *testing.T) {
	b := NewBroadcaster(1)
	a := b.Register("a")
	c := b.Register("c")

	b.Close()

	_, openA := <-a
	_, openC := <-c
	assert.False(t, openA)
	assert.False(t, openC)
	assert.Equal(t, 0, b.SubscriberCount())
}
