// Package logging provides concrete implementations of the pgload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes prefixed messages to stderr
//   - FileLogger: Appends timestamped lines to a log file that survives across runs
//   - TeeLogger: Fans every message out to several loggers
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
