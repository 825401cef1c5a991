package engine

// Stats derives read-only aggregates from the registry. Nothing is cached;
// every call reads the live state.
type Stats Engine

// slotOverheadBytes is the bookkeeping estimate per loaded song: the slot
// record plus the adapter-side voice it implies. A coarse constant is fine;
// the contract is only that the estimate is zero when nothing is loaded and
// grows with every add.
const slotOverheadBytes = 4096

// SongCount returns the number of loaded songs at read time.
func (s *Stats) SongCount() int {
	return len(s.order)
}

// MemoryUsage estimates the bytes retained on behalf of loaded songs: a
// fixed per-slot overhead plus each song's sample bytes (recorded at load
// time; songs without samples contribute a duration-derived estimate, since
// the adapter still runs a clock for them). Zero when nothing is loaded,
// strictly larger after every add.
func (s *Stats) MemoryUsage() int64 {
	e := (*Engine)(s)
	var total int64
	e.forEach(func(rec *slotRecord) {
		total += slotOverheadBytes + rec.memBytes
	})
	return total
}
