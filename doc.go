// Package translatorbridge exposes native OCR, dictionary and
// transliteration engines to a managed host through opaque handles.
//
// A host never sees engine objects directly. It receives a 64-bit handle
// from a create/open entry point, passes it back on every later call and
// releases it exactly once. Results cross the boundary as host objects
// built through a host environment, bottom-up and all-or-nothing.
//
// # Architecture Overview
//
//	translatorbridge/     Root package with guest Memory and Allocator interfaces
//	├── bridge/           Entry points: Tesseract, Tarkka and Mucab lifecycles
//	├── resource/         Generational handle table
//	├── ocr/              OCR session state machine and word iteration
//	│   └── tesseract/    gosseract-backed engine
//	├── dictionary/       Tarkka dictionary file reader and writer
//	├── translit/         Japanese to romaji transliteration
//	├── host/             Host environment abstraction and in-memory heap
//	├── marshal/          Domain values to host objects
//	├── logging/          Platform log sink as a zap core
//	├── wasmhost/         wazero host module exposing the bridge to guests
//	├── errors/           Structured error types
//	└── cmd/bridge/       Command line and interactive front end
//
// # Quick Start
//
//	b := bridge.New(bridge.WithOCREngineFactory(tesseract.New))
//	defer b.Close()
//
//	env := host.NewHeap()
//	h := b.TarkkaOpen("/data/es.tarkka")
//	defer b.TarkkaClose(h)
//
//	ref := b.TarkkaLookup(env, h, "dictionary")
//	if ref == host.Null {
//	    // not found, or lookup failed
//	}
//
// # Handles
//
// Handle 0 is never issued and every entry point treats it as "no object".
// Handles encode a slot and a generation, so a handle that has already
// been released, or that was never issued, fails validation instead of
// aliasing a live object.
//
// # Concurrency
//
// Handles of different objects may be used from different goroutines.
// Concurrent calls on the same OCR handle serialize on a per-session
// slot; the loser of a race observes a busy error rather than a
// half-updated engine.
package translatorbridge
