package domain

import (
	"context"
	"time"
)

// ChangeKind identifies which session collection changed.
type ChangeKind string

const (
	ChangeVisited ChangeKind = "visited"
	ChangeImages  ChangeKind = "images"
	ChangeMusic   ChangeKind = "music"
	ChangeCleared ChangeKind = "cleared"
)

// ChangeEvent is broadcast to every subscriber of a session after a mutation.
type ChangeEvent struct {
	SessionID string     `json:"session_id"`
	Kind      ChangeKind `json:"kind"`
	At        time.Time  `json:"at"`

	// Key is the page passed to MarkVisited (ChangeVisited only).
	Key string `json:"key,omitempty"`

	// Visited is the visited set after the mutation (ChangeVisited only).
	Visited []string `json:"visited,omitempty"`

	// Images is the image count after the mutation (ChangeImages only).
	Images *int `json:"images,omitempty"`

	// Music is the preference after the mutation (ChangeMusic only).
	Music *bool `json:"music,omitempty"`
}

// PageEvent describes a gate decision or a visit report.
type PageEvent struct {
	SessionID string
	Key       string
	Frontier  int
}

// ImageEvent describes a gallery mutation.
type ImageEvent struct {
	SessionID string
	Index     int
	Size      int
}

// Hooks defines callbacks for observability. Nil callbacks are skipped.
type Hooks struct {
	OnPageView     func(context.Context, *PageEvent)
	OnPageLocked   func(context.Context, *PageEvent)
	OnVisited      func(context.Context, *PageEvent)
	OnImageAdded   func(context.Context, *ImageEvent)
	OnImageRemoved func(context.Context, *ImageEvent)
	OnSessionEnded func(context.Context, string)
}
