package alarm

import "github.com/bits-and-blooms/bitset"

// notifiedSet records which threads were notified during one scheduler pass.
// It is keyed by logical thread id and grows as larger ids are marked.
type notifiedSet struct {
	bits *bitset.BitSet
}

func newNotifiedSet(capacity uint) *notifiedSet {
	return &notifiedSet{bits: bitset.New(capacity)}
}

func (s *notifiedSet) mark(id int) {
	s.bits.Set(uint(id))
}

func (s *notifiedSet) isMarked(id int) bool {
	return s.bits.Test(uint(id))
}

func (s *notifiedSet) clear() {
	s.bits.ClearAll()
}

func (s *notifiedSet) count() uint {
	return s.bits.Count()
}
