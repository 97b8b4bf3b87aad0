// Package knowledge implements the ingestion and hybrid-retrieval pipeline:
// fetch a document source, split it into bounded overlapping chunks, embed
// each chunk, and store chunk + embedding + keyword tokens in a SQLite index
// keyed by source identifier.
//
// Ingestion is idempotent (a source id already present is skipped unless
// force is set) and atomic per source (all chunks land in one transaction, so
// a concurrent query sees either the pre-ingestion or the fully-ingested
// state). Query fuses vector similarity and keyword overlap into a single
// ranking; a failed or empty pipeline degrades to an empty result set instead
// of failing the caller.
package knowledge
