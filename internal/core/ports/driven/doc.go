// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TextExtractor: Converts uploaded files into raw text
//   - KVStore: Durable key-value persistence for documents, chunks and settings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingModel: Generates vectors. Without it, retrieval is keyword-only.
//   - PdfParser: PDF text runs. Without it, PDF uploads are refused.
//   - InferenceClient: Chat completions. Without it, only retrieval and augmentation work.
//   - ToolHandler: Tools for inline {{tool(...)}} calls. Unregistered names render inline errors.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
