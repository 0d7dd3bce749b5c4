package alarm

// arena owns every allocated event. Slots are reused after release; the
// slot generation is bumped on release so old handles stop validating.
type arena struct {
	slots []arenaSlot
	free  []uint32
	live  int
}

type arenaSlot struct {
	gen uint32
	ev  *event
}

func (a *arena) alloc() *event {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot{gen: 1})
	}
	s := &a.slots[idx]
	ev := &event{slot: idx, gen: s.gen, magic: eventMagic}
	s.ev = ev
	a.live++
	return ev
}

// lookup returns the live event for the given slot and generation.
func (a *arena) lookup(slot, gen uint32) *event {
	if int(slot) >= len(a.slots) {
		return nil
	}
	s := &a.slots[slot]
	if s.ev == nil || s.gen != gen {
		return nil
	}
	s.ev.check()
	return s.ev
}

func (a *arena) release(ev *event) {
	ev.check()
	s := &a.slots[ev.slot]
	if s.ev != ev {
		panic("alarm: releasing an event that does not own its slot")
	}
	s.ev = nil
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	ev.magic = 0
	ev.cb = nil
	ev.owner = nil
	a.free = append(a.free, ev.slot)
	a.live--
}

// each calls fn for every live event in slot order.
func (a *arena) each(fn func(*event)) {
	for i := range a.slots {
		if ev := a.slots[i].ev; ev != nil {
			fn(ev)
		}
	}
}
