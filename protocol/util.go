package protocol

import (
	"math"
	"time"
)

// millis converts d to a wire uint32 millisecond count, saturating at the
// valid range rather than erroring — duration fields are hints to firmware,
// not safety-critical values.
func millis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}
