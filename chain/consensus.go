package chain

// CalcDifficultyBitcoin implements the Bitcoin-style difficulty
// adjustment (spec.md section 4.6): the parent's difficulty plus the
// whole seconds elapsed since the parent's timestamp, so a longer gap
// yields a higher difficulty.
func CalcDifficultyBitcoin(parent BlockHeader, timestamp float64) int64 {
	diff := timestamp - parent.HeaderTimestamp()
	return parent.HeaderDifficulty() + int64(diff)
}

// BlockDiffFactor is the Ethereum difficulty-adjustment divisor
// (spec.md section 4.7), grounded on the Python source's
// ethereum/config.py default_config conventions for named tunables.
const BlockDiffFactor = 2048

// CalcDifficultyEthereum implements the simplified Ethereum-style
// difficulty adjustment (spec.md section 4.7): new_diff = parent.diff +
// parent.diff/BLOCK_DIFF_FACTOR - (now - parent.timestamp), truncated.
func CalcDifficultyEthereum(parent BlockHeader, timestamp float64) int64 {
	offset := parent.HeaderDifficulty() / BlockDiffFactor
	delta := timestamp - parent.HeaderTimestamp()
	return parent.HeaderDifficulty() + offset - int64(delta)
}
