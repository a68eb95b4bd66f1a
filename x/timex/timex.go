package timex

import "time"

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// Due reports whether more than period has passed between lastMs and nowMs.
// A clock that moved backwards (re-based from the modem) counts as due so a
// gated loop cannot stall on a stale reference.
func Due(nowMs, lastMs int64, period time.Duration) bool {
	d := nowMs - lastMs
	return d < 0 || d > period.Milliseconds()
}

// FifoCoverage is how long a FIFO of depth words lasts at rateHz.
func FifoCoverage(depth int, rateHz uint32) time.Duration {
	if rateHz == 0 {
		return 0
	}
	return time.Duration(depth) * time.Duration(PeriodFromHz(rateHz))
}
