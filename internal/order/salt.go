package order

import (
	"sync/atomic"
	"time"
)

// dayMillis is a fixed 24-hour offset folded into every salt, matching the
// exchange's convention for client-generated salts.
const dayMillis = int64(24 * time.Hour / time.Millisecond)

// saltSeq is a process-wide counter blended into the sub-millisecond part of
// the salt so back-to-back calls on the same millisecond stay distinct. It
// is seeded from the nanosecond clock so restarts spread out too.
var saltSeq atomic.Int64

func init() {
	saltSeq.Store(time.Now().UnixNano() % 1_000_000)
}

// NewSalt returns an order salt built from the current millisecond timestamp
// plus a day offset, scaled by 1e6, with a sub-millisecond counter in the
// low digits.
//
// Salts are practically unique, not provably unique: two processes issuing
// orders in the same millisecond can collide, since the counter has no
// cross-process coordination. That is an accepted risk; the exchange rejects
// the rare duplicate and the caller simply rebuilds the order.
func NewSalt() int64 {
	ms := time.Now().UnixMilli() + dayMillis
	sub := saltSeq.Add(1) % 1_000_000
	return ms*1_000_000 + sub
}
