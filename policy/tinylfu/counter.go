package tinylfu

// Generation is one bit of the packed frequency word. Entries stamped with a
// generation other than the policy's current one are due for a scan event.
// There is no "old" and "new": the two values alternate, so the names carry
// no ordering.
type Generation uint32

const (
	Day   Generation = 0
	Night Generation = 1
)

// Flip returns the other generation.
func (g Generation) Flip() Generation { return g ^ 1 }

// The frequency word packs the generation bit above a saturating counter.
// Packing is an optimization over two separate fields: the word already
// shares the entry with the table's own key metadata, so frequency state
// costs no extra cache line and no separate doorkeeper filter.
const (
	genShift = 31
	// CounterMax is the saturation point of the access counter.
	CounterMax uint32 = 1<<genShift - 1
)

// Pack combines a generation and a counter into one frequency word.
func Pack(g Generation, counter uint32) uint32 {
	if counter > CounterMax {
		counter = CounterMax
	}
	return uint32(g)<<genShift | counter
}

// Unpack splits a frequency word into generation and counter.
func Unpack(f uint32) (Generation, uint32) {
	return Generation(f >> genShift), f & CounterMax
}
