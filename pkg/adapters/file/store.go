package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/lemon/internal/logging"
	"github.com/aretw0/lemon/pkg/domain"
)

// errCorrupt marks a session file that does not hold a JSON object.
var errCorrupt = errors.New("corrupt session file")

// Store implements ports.Storage on the local filesystem.
// Each session is one JSON object file in BasePath.
type Store struct {
	BasePath string
	mu       sync.Mutex
	logger   *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used to report corrupt session files.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Store) {
		f.logger = logger
	}
}

// NewStore creates a Store rooted at basePath.
// If basePath is empty, it defaults to ".lemon/sessions".
func NewStore(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".lemon", "sessions")
	}
	f := &Store{BasePath: basePath, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Store) path(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\.`) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSession, sessionID)
	}
	return filepath.Join(f.BasePath, sessionID+".json"), nil
}

func (f *Store) read(sessionID string) (map[string]string, error) {
	p, err := f.path(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	items := map[string]string{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	return items, nil
}

// readForWrite is read for the mutating paths: a corrupt file counts as an
// empty session and is replaced by the next write.
func (f *Store) readForWrite(sessionID string) (items map[string]string, corrupt bool, err error) {
	items, err = f.read(sessionID)
	if errors.Is(err, errCorrupt) {
		f.logger.Warn("Replacing corrupt session file", "session_id", sessionID, "err", err)
		return map[string]string{}, true, nil
	}
	return items, false, err
}

func (f *Store) write(sessionID string, items map[string]string) error {
	p, err := f.path(sessionID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(f.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	// Write then rename so readers never see a torn file.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// GetItem returns the value of key for the session.
func (f *Store) GetItem(ctx context.Context, sessionID, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read(sessionID)
	if err != nil {
		return "", err
	}
	val, ok := items[key]
	if !ok {
		return "", domain.ErrItemNotFound
	}
	return val, nil
}

// SetItem stores value under key.
func (f *Store) SetItem(ctx context.Context, sessionID, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, _, err := f.readForWrite(sessionID)
	if err != nil {
		return err
	}
	items[key] = value
	return f.write(sessionID, items)
}

// RemoveItem deletes key.
func (f *Store) RemoveItem(ctx context.Context, sessionID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, corrupt, err := f.readForWrite(sessionID)
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok && !corrupt {
		return nil
	}
	delete(items, key)
	return f.write(sessionID, items)
}

// Clear removes the session file.
func (f *Store) Clear(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(sessionID, nil)
}
