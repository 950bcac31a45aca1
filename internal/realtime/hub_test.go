package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribersOfTopic(t *testing.T) {
	h := NewHub(4)
	a, stopA := h.Subscribe("batch-1")
	defer stopA()
	b, stopB := h.Subscribe("batch-2")
	defer stopB()

	assert.Equal(t, 1, h.Publish("batch-1", Event{Type: "progress", Data: 1}))

	got := <-a
	assert.Equal(t, "progress", got.Type)
	select {
	case <-b:
		t.Fatal("other topic must not receive the event")
	default:
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := NewHub(1)
	_, stop := h.Subscribe("t")
	defer stop()

	assert.Equal(t, 1, h.Publish("t", Event{Type: "a"}))
	assert.Equal(t, 0, h.Publish("t", Event{Type: "b"}))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(1)
	ch, stop := h.Subscribe("t")
	stop()
	stop()

	_, open := <-ch
	require.False(t, open)
	assert.Equal(t, 0, h.Subscribers("t"))
	assert.Equal(t, 0, h.Publish("t", Event{Type: "late"}))
}
