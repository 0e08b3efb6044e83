package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueDepthGaugeIsSharedPerAddress(t *testing.T) {
	defer Reset()
	QueueDepthGauge("eu-1").Update(3)
	assert.EqualValues(t, 3, QueueDepthGauge("eu-1").Value())
}

func TestForksCounterAccumulatesPerAddress(t *testing.T) {
	defer Reset()
	ForksCounter("eu-1").Inc(1)
	ForksCounter("eu-1").Inc(2)
	assert.EqualValues(t, 3, ForksCounter("eu-1").Count())
}

func TestBlocksBuiltCounterIsIndependentPerAddress(t *testing.T) {
	defer Reset()
	BlocksBuiltCounter("eu-1").Inc(1)
	BlocksBuiltCounter("us-1").Inc(5)
	assert.EqualValues(t, 1, BlocksBuiltCounter("eu-1").Count())
	assert.EqualValues(t, 5, BlocksBuiltCounter("us-1").Count())
}

func TestSanitizeReplacesNonAlphanumericCharacters(t *testing.T) {
	assert.Equal(t, "blocksim_forks_eu_1", sanitize("forks_eu-1"))
}
