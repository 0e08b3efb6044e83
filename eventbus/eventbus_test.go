package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilBusPublishIsNoOp(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() {
		b.Publish(Event{Kind: EventBlockAdded, Address: "eu-1", At: 1})
	})
}

func TestNilBusCloseIsNoOp(t *testing.T) {
	var b *Bus
	assert.NoError(t, b.Close())
}

func TestNewRejectsUnreachableBrokers(t *testing.T) {
	_, err := New([]string{"127.0.0.1:1"}, "blocksim-events")
	assert.Error(t, err)
}
