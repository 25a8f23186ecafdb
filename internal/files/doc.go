// Package files lists the artefacts a session leaves in its output
// directories: converted workbooks, import workbooks and daily change logs.
package files
