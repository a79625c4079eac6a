/*
Package session implements the session-scoped state of a visitor.

A Manager hands out Session handles bound to one session ID. Each handle
exposes typed collections (visited pages, stored images, music preference)
over a ports.Storage, serializes read-modify-write sequences per session and
broadcasts a typed domain.ChangeEvent to subscribers after every mutation.

Reads fail open: a missing, corrupt or unreadable value is treated as an
empty collection and never surfaces as an error.

# Storage layout

	visited-keys   JSON array of page keys (any order)
	images         JSON array of data-URL strings (insertion order)
	music-playing  JSON boolean
*/
package session
