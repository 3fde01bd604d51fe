// Package pipeline drives the poll, dedupe, synthesize and enqueue loop.
//
// A Poller owns the chat cursor and the seen set. It fetches pages, backs
// off on transient failures and hands each new message to a Handler. The
// Orchestrator plugs a speaking handler into a Poller and decides how the
// playback queue is shut down when polling stops.
package pipeline
