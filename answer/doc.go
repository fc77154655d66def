// Package answer turns a student question into a grounded answer.
//
// Each request composes a prompt, retrieves fragments through a cached
// QueryEngine, generates with the configured strategy and assembles the
// response with its sources. Answers can be buffered (Answer) or streamed
// as an ordered sequence of Events (Stream): a searching status, one doc
// per source, a generating status, the tokens and a final done.
//
// Rate-limited generation is answered with a keyword-matched canned reply
// and flagged as degraded. Before any document is ingested the pipeline
// returns fixed guidance without touching the model.
package answer
