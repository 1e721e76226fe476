package utils

import "time"

// Throttle enforces a minimum interval between consecutive calls to Wait.
// Fetching is strictly sequential, so no locking is needed.
type Throttle struct {
	interval time.Duration
	last     time.Time
	sleep    func(time.Duration)
}

// NewThrottle creates a Throttle with the given minimum interval in
// milliseconds. A non-positive interval disables throttling.
func NewThrottle(intervalMs int) *Throttle {
	return &Throttle{
		interval: time.Duration(intervalMs) * time.Millisecond,
		sleep:    time.Sleep,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// previous call.
func (t *Throttle) Wait() {
	if t.interval <= 0 {
		return
	}
	if !t.last.IsZero() {
		if elapsed := time.Since(t.last); elapsed < t.interval {
			t.sleep(t.interval - elapsed)
		}
	}
	t.last = time.Now()
}

// URLSet tracks visited URLs within a single pass.
type URLSet struct {
	seen  map[string]struct{}
	order []string
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(url string) bool {
	if _, exists := s.seen[url]; exists {
		return false
	}
	s.seen[url] = struct{}{}
	s.order = append(s.order, url)
	return true
}

// Contains returns true if the URL has already been visited.
func (s *URLSet) Contains(url string) bool {
	_, exists := s.seen[url]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	return len(s.seen)
}

// List returns the URLs in insertion order.
func (s *URLSet) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
