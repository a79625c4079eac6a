package domain

import "fmt"

// Page keys of the default experience.
const (
	PageIntro    = "intro"
	PageMemory   = "memory"
	PagePhotos   = "photos"
	PageLetters  = "letters"
	PageUs       = "us"
	PageBirthday = "birthday"
	PageAnother  = "another"
)

// DefaultPageOrder is the single source of truth for the unlock sequence.
// Config files may replace it, but nothing else should hardcode the order.
var DefaultPageOrder = PageOrder{
	PageIntro,
	PageMemory,
	PagePhotos,
	PageLetters,
	PageUs,
	PageBirthday,
	PageAnother,
}

// PageOrder is an immutable ordered sequence of page keys.
type PageOrder []string

// NewPageOrder validates keys and returns a private copy.
// Keys must be non-empty and unique, and at least one key is required.
func NewPageOrder(keys ...string) (PageOrder, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("page order: at least one page is required")
	}
	seen := make(map[string]bool, len(keys))
	order := make(PageOrder, 0, len(keys))
	for i, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("page order: empty key at index %d", i)
		}
		if seen[k] {
			return nil, fmt.Errorf("page order: duplicate key %q", k)
		}
		seen[k] = true
		order = append(order, k)
	}
	return order, nil
}

// Index returns the position of key, or -1 if it is not part of the order.
func (o PageOrder) Index(key string) int {
	for i, k := range o {
		if k == key {
			return i
		}
	}
	return -1
}

// Contains reports whether key is part of the order.
func (o PageOrder) Contains(key string) bool {
	return o.Index(key) >= 0
}

// Keys returns a copy of the ordered keys.
func (o PageOrder) Keys() []string {
	out := make([]string, len(o))
	copy(out, o)
	return out
}

// PageState is the derived accessibility of a page.
type PageState string

const (
	PageLocked   PageState = "locked"
	PageUnlocked PageState = "unlocked"
)

// PageStatus describes one page as seen from a given visited set.
type PageStatus struct {
	Key     string    `json:"key"`
	Index   int       `json:"index"`
	State   PageState `json:"state"`
	Visited bool      `json:"visited"`
}
