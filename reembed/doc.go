// Package reembed rebuilds the embeddings of an existing index with a new or
// updated embedding model.
//
// Fragments are walked in ID order, embedded in batches with retry, normalized
// to unit length and written back in place. Once every fragment has a new
// vector the index manifest is rewritten to name the new model, so retrieval
// and later ingestion stay consistent with the stored vectors.
package reembed
