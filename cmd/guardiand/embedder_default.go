//go:build !onnx

package main

import (
	"github.com/defiguardian/guardian/memory"
	"github.com/defiguardian/guardian/memory/embedder/mock"
)

// newEmbedder returns the hash-based embedder. Build with -tags onnx for
// real semantic search.
func newEmbedder() (memory.Embedder, error) {
	return mock.New(), nil
}
