package vm

// ---------------------------------------------------------------------------
// Arena: registry of transient heap objects with checkpoint/restore
// ---------------------------------------------------------------------------

// Checkpoint is a restore point in an Arena.
type Checkpoint int

// ArenaStats holds counters for one arena.
type ArenaStats struct {
	Live      int    // objects currently protected
	Allocated uint64 // objects ever registered
	Released  uint64 // objects dropped by Restore
	Restores  uint64
}

// Arena protects every heap object allocated while code runs, in
// allocation order. Restoring a checkpoint releases everything registered
// after it. Classes are roots and never live in the arena.
type Arena struct {
	objs  []heapValue
	limit int
	stats ArenaStats
}

func newArena(limit int) *Arena {
	return &Arena{limit: limit}
}

// Save returns a checkpoint for the current arena top.
func (a *Arena) Save() Checkpoint {
	return Checkpoint(len(a.objs))
}

// Restore releases every object registered after cp.
func (a *Arena) Restore(cp Checkpoint) {
	n := int(cp)
	if n < 0 {
		n = 0
	}
	if n >= len(a.objs) {
		return
	}
	for i := n; i < len(a.objs); i++ {
		a.objs[i].hdr().released = true
		a.objs[i] = nil
	}
	a.stats.Released += uint64(len(a.objs) - n)
	a.stats.Restores++
	a.objs = a.objs[:n]
}

// Len returns the number of protected objects.
func (a *Arena) Len() int { return len(a.objs) }

// Limit returns the allocation limit for running code (0 means none).
func (a *Arena) Limit() int { return a.limit }

// Stats returns a snapshot of the arena counters.
func (a *Arena) Stats() ArenaStats {
	s := a.stats
	s.Live = len(a.objs)
	return s
}

// Live reports whether v is still protected. Immediate values and classes
// are always live.
func (a *Arena) Live(v Value) bool {
	h, ok := v.(heapValue)
	if !ok {
		return true
	}
	return !h.hdr().released
}

// add registers obj unconditionally.
func (a *Arena) add(obj heapValue) {
	a.stats.Allocated++
	obj.hdr().seq = a.stats.Allocated
	a.objs = append(a.objs, obj)
}

// full reports whether running code has reached the limit.
func (a *Arena) full() bool {
	return a.limit > 0 && len(a.objs) >= a.limit
}
