// Package services implements the business logic behind the HTTP API and
// the CLI.
//
// WorkbookService owns the editing workflow: it ingests a survey export,
// derives the annotated table through the pipeline, answers review queries
// (summary, panels flagged by a rule, rows of a panel), applies MODIFY and
// DELETE edits through the workbook session and writes the derived and
// import workbooks. Every state change is pushed to websocket clients as a
// workbook:update message; pipeline stages are pushed as pipeline:progress.
//
// Services return sentinel errors (ErrNoWorkbook, ErrPanelNotFound, ...)
// that the transport layer maps to HTTP status codes.
package services
