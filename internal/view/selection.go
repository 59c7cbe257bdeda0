package view

import "sync"

// Selection is the two-state selection machine: unselected, or selected with
// exactly one fire id. Selecting B while A is selected is a single direct
// transition, not a deselect followed by a select.
type Selection struct {
	mu     sync.Mutex
	fireID string
}

// Select moves to Selected(fireID). It returns the previously selected fire
// id ("" if none) and whether the state actually changed.
func (s *Selection) Select(fireID string) (prev string, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.fireID
	if prev == fireID {
		return prev, false
	}
	s.fireID = fireID
	return prev, true
}

// Deselect moves to Unselected. It returns the fire id that was selected and
// whether the state changed; deselecting while unselected is a no-op.
func (s *Selection) Deselect() (prev string, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.fireID
	if prev == "" {
		return "", false
	}
	s.fireID = ""
	return prev, true
}

// Selected returns the selected fire id and true, or "" and false.
func (s *Selection) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fireID, s.fireID != ""
}
