// Package feed broadcasts simulation output over WebSocket.
//
// The feed server implements sink.Sink, so it can be wired next to the
// database writers with sink.Multi. Broadcasts never block the tick loop:
// slow subscribers simply miss messages.
package feed
