package vm

import (
	"fmt"
	"time"
)

// GCLevel selects how eagerly the heap reclaims unreachable objects.
type GCLevel int

const (
	// GCNone never collects automatically; only explicit collection runs.
	GCNone GCLevel = iota
	// GCDefault collects when the live set doubles past a floor.
	GCDefault
	// GCLowMem collects at every safe point once a small live set exists.
	GCLowMem
)

const (
	defaultGCFloor = 1024
	lowMemGCFloor  = 64
)

func (l GCLevel) String() string {
	switch l {
	case GCNone:
		return "none"
	case GCDefault:
		return "default"
	case GCLowMem:
		return "lowmem"
	}
	return fmt.Sprintf("GCLevel(%d)", int(l))
}

// ParseGCLevel converts "none", "default" or "lowmem" to a GCLevel.
func ParseGCLevel(s string) (GCLevel, error) {
	switch s {
	case "none":
		return GCNone, nil
	case "default", "":
		return GCDefault, nil
	case "lowmem":
		return GCLowMem, nil
	}
	return GCDefault, fmt.Errorf("unknown gc level %q", s)
}

// GCStats holds statistics from a single collection.
type GCStats struct {
	StrsSwept     int
	ListsSwept    int
	StrsLive      int
	ListsLive     int
	SweepDuration time.Duration
}

// Level returns the active GC level.
func (h *Heap) Level() GCLevel { return h.level }

// SetLevel changes the GC level.
func (h *Heap) SetLevel(l GCLevel) {
	if l < GCNone || l > GCLowMem {
		panic(fmt.Sprintf("vm: invalid gc level %d", int(l)))
	}
	h.level = l
}

// LastStats returns the statistics of the most recent collection.
func (h *Heap) LastStats() GCStats { return h.lastStats }

// NeedsCollect reports whether allocation pressure calls for a collection
// under the active level.
func (h *Heap) NeedsCollect() bool {
	switch h.level {
	case GCDefault:
		return h.live >= max(defaultGCFloor, 2*h.lastLive)
	case GCLowMem:
		return h.allocs > 0 && h.live > lowMemGCFloor
	}
	return false
}

// Collect runs a full mark-sweep. roots is called with a mark function that
// must be applied to every root value.
func (h *Heap) Collect(roots func(mark func(Value))) GCStats {
	start := time.Now()

	strMarks := make([]bool, len(h.strs))
	listMarks := make([]bool, len(h.lists))
	var work []uint32

	mark := func(v Value) {
		switch v.kind {
		case KindStr:
			if v.heapID() == h.id && int(v.slot()) < len(strMarks) {
				strMarks[v.slot()] = true
			}
		case KindList:
			if v.heapID() == h.id && int(v.slot()) < len(listMarks) && !listMarks[v.slot()] {
				listMarks[v.slot()] = true
				work = append(work, v.slot())
			}
		}
	}
	roots(mark)

	for len(work) > 0 {
		slot := work[len(work)-1]
		work = work[:len(work)-1]
		if l := h.lists[slot]; l != nil {
			for _, v := range l.Vals {
				mark(v)
			}
		}
	}

	var stats GCStats
	for i, s := range h.strs {
		if s == nil {
			continue
		}
		if strMarks[i] {
			stats.StrsLive++
			continue
		}
		h.strs[i] = nil
		h.strFree = append(h.strFree, uint32(i))
		stats.StrsSwept++
	}
	for i, l := range h.lists {
		if l == nil {
			continue
		}
		if listMarks[i] {
			stats.ListsLive++
			continue
		}
		h.lists[i] = nil
		h.listFree = append(h.listFree, uint32(i))
		stats.ListsSwept++
		if l.UserType != 0 && h.onFree != nil {
			h.onFree(l)
		}
	}

	h.live = stats.StrsLive + stats.ListsLive
	h.lastLive = h.live
	h.allocs = 0
	stats.SweepDuration = time.Since(start)
	h.lastStats = stats
	return stats
}
