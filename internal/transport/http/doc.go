// Package http exposes the workbook review service over a JSON API.
//
// Handlers only decode requests, call the service and render results.
// Every failure goes through the shared error handler, which answers with
// RFC 7807 problem details.
//
//	POST  /workbook/load                   open a raw export
//	GET   /workbook/summary                rule and panel counts
//	GET   /workbook/errors/{rule}          panels flagged by one rule
//	GET   /workbook/panels/{panel}/rows    one panel's rows, optional ?product=
//	PATCH /workbook/rows                   edit cells of flagged rows
//	POST  /workbook/rows/delete            drop rows
//	POST  /workbook/export                 write the derived or import workbook
//	GET   /workbook/changelog              applied edits of this session
//	GET   /workbook/outputs                files in the output directories
package http
