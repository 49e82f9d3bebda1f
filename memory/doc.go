// Package memory gives the guardian agent recall of past analyses.
//
// Risk assessments, metric lookups and pool scans are stored as vector
// memories, namespaced per user, and retrieved by similarity when the user
// asks a related question. The pieces:
//
//   - Store: vector storage backend (chromem-go, embedded)
//   - Embedder: text-to-vector conversion (mock for tests, ONNX behind a
//     build tag for real semantic search)
//   - Manager: decides what to keep and how to format it for the prompt
//
// The engine calls Retrieve before a run and RecordTraces/RecordConversation
// after it; everything else is internal to the manager.
package memory
