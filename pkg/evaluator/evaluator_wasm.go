//go:build (js && wasm) || wasip1

package evaluator

// WebAssembly hosts run goroutines on a single thread, where fanning out
// function arguments only adds scheduling overhead and, under js/wasm, can
// block the event loop. Argument evaluation stays sequential there unless
// WithConcurrency(true) is passed explicitly.
func init() {
	defaultConcurrency = false
}
