// Package reassembler reconstructs a contiguous byte stream from
// out-of-order, possibly overlapping, absolute-indexed fragments.
package reassembler

import (
	"github.com/google/btree"

	"github.com/oooscar8/minnow/internal/bytestream"
)

// fragment is a pending, not-yet-deliverable run of bytes starting at an
// absolute stream index. It implements btree.Item so the pending set stays
// ordered by start index without a hand-rolled sorted slice.
type fragment struct {
	start uint64
	data  []byte
}

func (f *fragment) Less(than btree.Item) bool {
	return f.start < than.(*fragment).start
}

// Reassembler delivers bytes, in order, to an underlying ByteStream as they
// become contiguous; everything not yet deliverable is held in a
// capacity-bounded pending set.
type Reassembler struct {
	output   *bytestream.ByteStream
	pending  *btree.BTree
	lastByte *uint64 // absolute index of the final byte, once known
}

// New constructs a Reassembler that delivers into output.
func New(output *bytestream.ByteStream) *Reassembler {
	return &Reassembler{
		output:  output,
		pending: btree.New(32),
	}
}

// Output returns the underlying ByteStream.
func (r *Reassembler) Output() *bytestream.ByteStream {
	return r.output
}

// NextByteIndex is the absolute index of the next byte Insert will deliver.
func (r *Reassembler) NextByteIndex() uint64 {
	return r.output.BytesPushed()
}

// Insert delivers data (an absolute-indexed fragment) into the reassembler.
// Bytes outside the current capacity window are silently dropped (or
// truncated to fit); isLast marks data as ending the stream.
func (r *Reassembler) Insert(firstIndex uint64, data []byte, isLast bool) {
	nextByteIndex := r.NextByteIndex()

	if len(data) == 0 && isLast && firstIndex == nextByteIndex {
		r.output.Close()
		return
	}

	if isLast {
		last := firstIndex + uint64(len(data)) - 1
		r.lastByte = &last
	}

	availableCapacity := r.output.AvailableCapacity()
	if firstIndex < nextByteIndex+availableCapacity && firstIndex+uint64(len(data)) > nextByteIndex {
		insertKey := firstIndex
		if nextByteIndex > insertKey {
			insertKey = nextByteIndex
		}
		windowEnd := nextByteIndex + availableCapacity
		end := firstIndex + uint64(len(data))
		if end > windowEnd {
			end = windowEnd
		}
		if end <= insertKey {
			return
		}
		sliceStart := insertKey - firstIndex
		sliceEnd := sliceStart + (end - insertKey)
		clipped := make([]byte, sliceEnd-sliceStart)
		copy(clipped, data[sliceStart:sliceEnd])

		// A shorter fragment at the same start index must not displace a
		// longer one already pending.
		if existing := r.pending.Get(&fragment{start: insertKey}); existing != nil &&
			len(existing.(*fragment).data) >= len(clipped) {
			return
		}
		r.pending.ReplaceOrInsert(&fragment{start: insertKey, data: clipped})
		r.mergeFragments()

		if min := r.pending.Min(); min != nil {
			f := min.(*fragment)
			if f.start == nextByteIndex {
				r.output.Push(f.data)
				if r.lastByte != nil && f.start+uint64(len(f.data))-1 == *r.lastByte {
					r.output.Close()
				}
				r.pending.Delete(f)
			}
		}
	}
}

// mergeFragments fuses overlapping or adjacent pending fragments, discarding
// any fragment fully contained within its predecessor.
func (r *Reassembler) mergeFragments() {
	if r.pending.Len() <= 1 {
		return
	}

	ordered := make([]*fragment, 0, r.pending.Len())
	r.pending.Ascend(func(i btree.Item) bool {
		ordered = append(ordered, i.(*fragment))
		return true
	})

	merged := make([]*fragment, 0, len(ordered))
	cur := ordered[0]
	for _, next := range ordered[1:] {
		curEnd := cur.start + uint64(len(cur.data))
		if curEnd >= next.start {
			nextEnd := next.start + uint64(len(next.data))
			if curEnd >= nextEnd {
				// next fully contained in cur; discard it.
				continue
			}
			overlap := curEnd - next.start
			combined := make([]byte, 0, len(cur.data)+len(next.data)-int(overlap))
			combined = append(combined, cur.data...)
			combined = append(combined, next.data[overlap:]...)
			cur = &fragment{start: cur.start, data: combined}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)

	r.pending = btree.New(32)
	for _, f := range merged {
		r.pending.ReplaceOrInsert(f)
	}
}

// CountBytesPending reports how many bytes are held in the pending set,
// not yet deliverable. Test-only accessor; adds no extra state.
func (r *Reassembler) CountBytesPending() uint64 {
	var count uint64
	r.pending.Ascend(func(i btree.Item) bool {
		count += uint64(len(i.(*fragment).data))
		return true
	})
	return count
}

// IsFinished reports whether the underlying stream has been closed and
// fully drained.
func (r *Reassembler) IsFinished() bool {
	return r.output.IsFinished()
}
