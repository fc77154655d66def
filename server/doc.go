// Package server exposes a Docent over HTTP.
//
// Routes:
//
//	POST   /chat                student chat, approved documents only
//	POST   /chat_stream         the same, as newline-delimited JSON events
//	POST   /query               administrator query over every document
//	POST   /voice_chat          spoken question in, spoken answer out
//	POST   /upload_pdf          synchronous ingestion
//	POST   /upload_pdf_async    background ingestion
//	GET    /upload_status/:id   background ingestion progress
//	GET    /documents           document listing with approval state
//	POST   /approve_doc/:name   make a document visible to students
//	DELETE /delete_doc/:name    remove a document and its fragments
//	GET    /logs                recent administrative activity
//	GET    /health              index state
//	GET    /metrics             Prometheus exposition
//
// Errors are returned as {"detail": message}.
package server
