// Package shared holds helpers used by more than one package. Its testutil
// subpackage provides a capturing slog handler and diary fixtures for tests.
package shared
