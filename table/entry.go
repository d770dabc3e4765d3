package table

// Tag identifies the sub-cache (or cache segment) an entry belongs to.
// NoTag marks an entry that no policy currently owns.
type Tag uint8

// NoTag is the zero owner tag.
const NoTag Tag = 0

// Entry is the capability contract a record stored in the Table must satisfy.
// Besides key/value/metadata access it reserves the intrusive bookkeeping the
// eviction policies need:
//
//   - Owner/SetOwner: the owning sub-cache (or segment) tag.
//   - Prev/Next:      handle links for list-based policies (LRU, SLRU).
//     Two handles per entry; a policy other than the owner must not touch them.
//   - Freq/SetFreq:   one packed word for frequency-based policies
//     (generation bit + saturating counter, see policy/tinylfu).
//
// Implementations must have pointer semantics: the Table hands the same E
// value back on every Get, and policies mutate bookkeeping through it.
type Entry[K comparable, V, M any] interface {
	Key() K
	Value() V
	SetValue(V)

	// Meta is opaque to the Table and surfaced verbatim in engine callbacks.
	Meta() M
	SetMeta(M)

	Owner() Tag
	SetOwner(Tag)

	Prev() Handle
	SetPrev(Handle)
	Next() Handle
	SetNext(Handle)

	Freq() uint32
	SetFreq(uint32)
}

// Record is the stock Entry implementation used by the engine unless the
// caller supplies its own layout via an entry factory.
type Record[K comparable, V, M any] struct {
	key  K
	val  V
	meta M

	owner Tag

	// Intrusive list links: prev is toward MRU, next is toward LRU.
	prev Handle
	next Handle

	// Packed (generation, counter) word used by frequency policies.
	freq uint32
}

// NewRecord builds a Record. Its signature matches the entry factory the
// engine expects, so cache.New can pass it directly.
func NewRecord[K comparable, V, M any](k K, v V, m M) *Record[K, V, M] {
	return &Record[K, V, M]{key: k, val: v, meta: m}
}

func (r *Record[K, V, M]) Key() K          { return r.key }
func (r *Record[K, V, M]) Value() V        { return r.val }
func (r *Record[K, V, M]) SetValue(v V)    { r.val = v }
func (r *Record[K, V, M]) Meta() M         { return r.meta }
func (r *Record[K, V, M]) SetMeta(m M)     { r.meta = m }
func (r *Record[K, V, M]) Owner() Tag      { return r.owner }
func (r *Record[K, V, M]) SetOwner(t Tag)  { r.owner = t }
func (r *Record[K, V, M]) Prev() Handle    { return r.prev }
func (r *Record[K, V, M]) SetPrev(h Handle) { r.prev = h }
func (r *Record[K, V, M]) Next() Handle    { return r.next }
func (r *Record[K, V, M]) SetNext(h Handle) { r.next = h }
func (r *Record[K, V, M]) Freq() uint32    { return r.freq }
func (r *Record[K, V, M]) SetFreq(f uint32) { r.freq = f }

// Compile-time check: *Record satisfies the Entry contract.
var _ Entry[string, int, struct{}] = (*Record[string, int, struct{}])(nil)
