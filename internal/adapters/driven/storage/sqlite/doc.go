// Package sqlite provides an embedded vector repository on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// Records live in a single documents table: id, content, JSON metadata, the
// embedding as a little-endian float32 blob of 4 x dimension bytes, and seq, the
// first-insertion order used to break similarity ties. The schema is
// managed through versioned migrations stored in the migrations/ directory.
//
// # Search
//
// Search loads every record and computes cosine similarity in process. Cost is
// O(n x d) per query, which is fine for a few thousand chunks and no further.
// Use the postgres or qdrant backends for larger corpora.
//
// # Data Location
//
// By default, the database is stored at ~/.vidrag/data/documents.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
