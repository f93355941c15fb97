// Package logging provides opt-in file-based logging with rotation for Reeves.
// When the --debug flag is set, comprehensive logs are written to ~/.reeves/logs/
// for debugging and troubleshooting, split across the server process and any
// sandboxed extractor child processes it launches.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
