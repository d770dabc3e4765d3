// Package cache composes in-memory caches that share a single backing store.
//
// One stable-index table (package table) holds every entry; one or more
// sub-caches partition its key space, each running its own eviction policy
// over integer handles into the table instead of private storage. Moving an
// entry between policies (TinyLFU window → main, SLRU probation → protected)
// is a retag and a few link fixes, never a delete/re-insert.
//
// Design
//
//   - Concurrency: none. The engine is single-writer by design; wrap it in
//     your own mutex or confine it to one goroutine. Read access concurrent
//     with mutation is undefined.
//
//   - Storage: the table issues generation-checked handles that stay valid
//     until the entry is removed. Policies keep intrusive prev/next handle
//     links and a packed frequency word inside the entries themselves.
//
//   - Policies: LRU, Segmented LRU (20/80), and Scan-Window TinyLFU (1%
//     window, frequency-based admission, lazy scan-based counter aging).
//
//   - Callbacks: Options.OnEvent observes get/insert/evict synchronously
//     with the affected handle and the entry's metadata. Callbacks must not
//     reenter the engine.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is the default; metrics/prom exports Prometheus counters.
//
// Basic usage
//
//	eng, err := cache.New[string, []byte, struct{}](cache.Options[string, []byte, struct{}]{
//		TotalCapacity: 10_000,
//	})
//	if err != nil {
//		// handle err
//	}
//	main, _ := eng.Sub("main")
//	main.Insert("a", []byte("1"), struct{}{})
//	if v, ok := main.Get("a"); ok {
//		_ = v // use value
//	}
//	main.Remove("a")
//
// Multiple sub-caches over one table
//
//	eng, err := cache.New[string, string, int64](cache.Options[string, string, int64]{
//		TotalCapacity: 4096,
//		SubCaches: []cache.SubCacheSpec{
//			{Name: "hot", Kind: cache.PolicyTinyLFU, Ratio: 0.75},
//			{Name: "scratch", Kind: cache.PolicyLRU, Ratio: 0.25},
//		},
//	})
//
// Custom entry layouts plug in through NewWithEntry: any type satisfying
// table.Entry works, as long as it reserves the intrusive fields the chosen
// policies need (LRU: the two handle links; SLRU: links plus the owner tag;
// TinyLFU: those plus the packed generation+counter word).
package cache
