// Package exporter writes derived tables and change logs to disk.
//
// WorkbookWriter renders the converted workbook: one banded sheet per run,
// panel groups alternating background, flagged cells highlighted and an
// autofilter table over the whole range. WriteImport writes the reduced
// column set used to re-import cleaned data.
//
// CSVWriter handles the CSV side: BOM-prefixed files for Excel, the daily
// change log and a streaming writer for derived tables.
package exporter
