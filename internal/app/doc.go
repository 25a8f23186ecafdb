// Package app wires configuration, telemetry, the workbook session and
// the HTTP server into one Application and owns its lifecycle.
//
// New builds every component without opening a socket, so the command
// line tools reuse it for batch work. Run adds the listener and blocks
// until the context ends or SIGINT/SIGTERM arrives, then shuts down the
// server, the push hub, the change log store and the telemetry providers
// in that order.
package app
