// Package ingestion turns uploaded documents into indexed fragments.
//
// An upload flows through a scratch file, the extraction chain,
// Normalize and the Chunker before the Writer embeds and persists the
// fragments in batches on a worker pool. A failed batch is logged and
// reported in the StoreResult without stopping the other batches.
//
// Ingesting a key that already exists replaces its fragments, and every
// ingested document starts out pending approval. Pipeline.Submit runs
// the same flow in the background and records progress in a JobTracker.
package ingestion
