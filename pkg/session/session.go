package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/lemon/pkg/domain"
)

// Storage keys of the session collections.
const (
	KeyVisited = "visited-keys"
	KeyImages  = "images"
	KeyMusic   = "music-playing"
)

// Session is a handle on one visitor session.
// It holds no state of its own; every call goes through storage.
type Session struct {
	id string
	m  *Manager
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// readJSON decodes key into dst and reports whether a usable value was found.
// Missing keys, storage failures and malformed JSON all report false.
func (s *Session) readJSON(ctx context.Context, key string, dst any) bool {
	raw, err := s.m.storage.GetItem(ctx, s.id, key)
	if err != nil {
		if !errors.Is(err, domain.ErrItemNotFound) {
			s.m.logger.Warn("Session read failed, using empty value",
				"session_id", s.id, "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.m.logger.Warn("Session value corrupt, using empty value",
			"session_id", s.id, "key", key, "err", err)
		return false
	}
	return true
}

func (s *Session) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.m.storage.SetItem(ctx, s.id, key, string(data)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// Visited returns the visited set. It never fails.
func (s *Session) Visited(ctx context.Context) domain.VisitedSet {
	var keys []string
	if !s.readJSON(ctx, KeyVisited, &keys) {
		return domain.NewVisitedSet()
	}
	return domain.NewVisitedSet(keys...)
}

// MarkVisited adds key to the visited set and persists it.
// Marking an already visited key leaves the set unchanged. A change
// notification is broadcast after every successful call.
func (s *Session) MarkVisited(ctx context.Context, key string) error {
	var (
		visited domain.VisitedSet
		added   bool
	)
	err := s.m.WithLock(ctx, s.id, func(ctx context.Context) error {
		visited = s.Visited(ctx)
		added = visited.Add(key)
		if !added {
			return nil
		}
		return s.writeJSON(ctx, KeyVisited, visited.Keys())
	})
	if err != nil {
		return err
	}

	if added && s.m.hooks.OnVisited != nil {
		s.m.hooks.OnVisited(ctx, &domain.PageEvent{SessionID: s.id, Key: key})
	}
	s.m.events.Publish(domain.ChangeEvent{
		SessionID: s.id,
		Kind:      domain.ChangeVisited,
		At:        s.m.now(),
		Key:       key,
		Visited:   visited.Keys(),
	})
	return nil
}

// Images returns the stored images in insertion order. It never fails.
func (s *Session) Images(ctx context.Context) []string {
	var images []string
	if !s.readJSON(ctx, KeyImages, &images) || images == nil {
		return []string{}
	}
	return images
}

// AddImage appends blob to the image list.
func (s *Session) AddImage(ctx context.Context, blob string) error {
	var count int
	err := s.m.WithLock(ctx, s.id, func(ctx context.Context) error {
		images := append(s.Images(ctx), blob)
		count = len(images)
		return s.writeJSON(ctx, KeyImages, images)
	})
	if err != nil {
		return err
	}

	if s.m.hooks.OnImageAdded != nil {
		s.m.hooks.OnImageAdded(ctx, &domain.ImageEvent{SessionID: s.id, Index: count - 1, Size: len(blob)})
	}
	s.m.events.Publish(domain.ChangeEvent{SessionID: s.id, Kind: domain.ChangeImages, At: s.m.now(), Images: &count})
	return nil
}

// RemoveImage deletes the image at index; later images shift down by one.
// An out-of-range index is silently ignored.
func (s *Session) RemoveImage(ctx context.Context, index int) error {
	var (
		removed string
		count   int
		ok      bool
	)
	err := s.m.WithLock(ctx, s.id, func(ctx context.Context) error {
		images := s.Images(ctx)
		if index < 0 || index >= len(images) {
			return nil
		}
		removed = images[index]
		images = append(images[:index], images[index+1:]...)
		count = len(images)
		ok = true
		return s.writeJSON(ctx, KeyImages, images)
	})
	if err != nil || !ok {
		return err
	}

	if s.m.hooks.OnImageRemoved != nil {
		s.m.hooks.OnImageRemoved(ctx, &domain.ImageEvent{SessionID: s.id, Index: index, Size: len(removed)})
	}
	s.m.events.Publish(domain.ChangeEvent{SessionID: s.id, Kind: domain.ChangeImages, At: s.m.now(), Images: &count})
	return nil
}

// Music reports whether background music is switched on. It never fails.
func (s *Session) Music(ctx context.Context) bool {
	var on bool
	if !s.readJSON(ctx, KeyMusic, &on) {
		return false
	}
	return on
}

// ToggleMusic flips the music preference and returns the new value.
func (s *Session) ToggleMusic(ctx context.Context) (bool, error) {
	var on bool
	err := s.m.WithLock(ctx, s.id, func(ctx context.Context) error {
		on = !s.Music(ctx)
		return s.writeJSON(ctx, KeyMusic, on)
	})
	if err != nil {
		return false, err
	}
	s.m.events.Publish(domain.ChangeEvent{SessionID: s.id, Kind: domain.ChangeMusic, At: s.m.now(), Music: &on})
	return on, nil
}

// Subscribe registers for this session's change notifications.
// The returned cancel func must be called to release the subscription.
func (s *Session) Subscribe() (<-chan domain.ChangeEvent, func()) {
	return s.m.events.Subscribe(s.id)
}

// End clears the session.
func (s *Session) End(ctx context.Context) error {
	return s.m.End(ctx, s.id)
}
