// Package browser binds the router to a live page when compiled with
// GOOS=js GOARCH=wasm: the location hash is the navigation fragment and the
// document is the one the module was loaded into.
package browser
