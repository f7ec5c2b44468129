//go:build cgo

// Command libufo builds the lazy-object boundary as a C shared library:
//
//	go build -buildmode=c-shared -o libufo.so ./cmd/libufo
//
// ufo.h declares the exported functions. Handles are integer tokens into
// Go-side tables, so C never holds a Go pointer.
package main

func main() {}
