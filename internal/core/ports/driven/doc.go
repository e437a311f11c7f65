// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - VectorRepository: Durable record storage with similarity search
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer and support page generation. Without it only retrieval works.
//   - AudioExtractor, Transcriber: Video pipeline stages.
//   - IngestQueue: Asynchronous ingestion. Without it documents are ingested inline.
//   - RecordCounter: Implemented by repositories that can count their records.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
