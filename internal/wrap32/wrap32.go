// Package wrap32 implements the 32-bit wrapping sequence number arithmetic
// used by TCP: the bijection between an absolute 64-bit stream index and a
// wrapping 32-bit sequence number relative to some zero point (the ISN).
package wrap32

// Wrap32 is a 32-bit sequence number that wraps around modulo 2^32.
type Wrap32 struct {
	raw uint32
}

// New constructs a Wrap32 from a raw 32-bit value.
func New(raw uint32) Wrap32 {
	return Wrap32{raw: raw}
}

// Raw returns the underlying 32-bit value.
func (w Wrap32) Raw() uint32 {
	return w.raw
}

// Wrap converts an absolute 64-bit index into a Wrap32 relative to zeroPoint.
func Wrap(n uint64, zeroPoint Wrap32) Wrap32 {
	return Wrap32{raw: zeroPoint.raw + uint32(n)}
}

// Unwrap returns the absolute sequence number that, when wrapped relative to
// zeroPoint, equals w, and that is closest to checkpoint. Ties (the wrapped
// value is equidistant between two absolute candidates) resolve toward the
// smaller absolute value.
func (w Wrap32) Unwrap(zeroPoint Wrap32, checkpoint uint64) uint64 {
	const span uint64 = 1 << 32

	// offset is the smallest non-negative absolute index that wraps to w;
	// every valid candidate is offset + k*span for some k >= 0.
	offset := uint64(w.raw - zeroPoint.raw)

	if checkpoint <= offset {
		return offset
	}

	k := (checkpoint - offset) / span
	below := offset + k*span
	above := below + span

	if checkpoint-below <= above-checkpoint {
		return below
	}
	return above
}
