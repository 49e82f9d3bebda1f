//go:build onnx

package main

import (
	"os"

	"github.com/defiguardian/guardian/memory"
	"github.com/defiguardian/guardian/memory/embedder/onnx"
)

// newEmbedder returns the ONNX embedder. Requires ONNX_MODEL_PATH,
// ONNX_TOKENIZER_PATH and ONNXRUNTIME_LIB to be set.
func newEmbedder() (memory.Embedder, error) {
	return onnx.New(onnx.Config{
		ModelPath:     os.Getenv("ONNX_MODEL_PATH"),
		TokenizerPath: os.Getenv("ONNX_TOKENIZER_PATH"),
	})
}
