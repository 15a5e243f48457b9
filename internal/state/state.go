// Package state holds the session's view and filter state and its navigation history.
package state

import (
	"maps"
	"slices"
	"sync"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
)

// TagMode selects which set the tag panel edits.
type TagMode string

// Tag panel modes.
const (
	TagModeHighlight TagMode = "highlight"
	TagModeHide      TagMode = "hide"
)

// ChangeKind says what part of the state changed.
type ChangeKind int

// Change kinds.
const (
	ChangeFilters ChangeKind = iota + 1
	ChangeRoute
	ChangeUser
)

// Change is delivered to listeners after the state was updated.
type Change struct {
	Kind  ChangeKind
	Route Route
}

// Listener observes state changes. It runs on the goroutine that made the change.
type Listener func(Change)

// Filters is an immutable copy of the filter state used for derivation.
type Filters struct {
	Highlight      map[string]bool
	Hide           map[string]bool
	HideBadlyRated bool
	// ClientID identifies the current client's votes for HideBadlyRated.
	ClientID string
}

// Active reports whether any tag filter is set.
func (f Filters) Active() bool {
	return len(f.Highlight) > 0 || len(f.Hide) > 0
}

// State is the single mutable object behind view selection, filters and pagination.
type State struct {
	mu sync.RWMutex

	route          Route
	history        []Route
	cursor         int
	activeListID   string
	highlight      map[string]bool
	hide           map[string]bool
	tagMode        TagMode
	hideBadlyRated bool
	clientID       string
	pages          map[domain.View]int
	pageSizes      map[domain.PageCategory]int
	user           *domain.User

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates a session state on the main screen.
func New(clientID string) *State {
	return &State{
		route:     MainRoute,
		history:   []Route{MainRoute},
		highlight: make(map[string]bool),
		hide:      make(map[string]bool),
		tagMode:   TagModeHighlight,
		clientID:  clientID,
		pages:     make(map[domain.View]int),
		pageSizes: map[domain.PageCategory]int{
			domain.CategoryAdmin:     10,
			domain.CategoryUser:      40,
			domain.CategoryFavorites: 40,
		},
	}
}

// OnChange registers a listener.
func (s *State) OnChange(fn Listener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *State) notify(c Change) {
	s.listenersMu.RLock()
	fns := slices.Clone(s.listeners)
	s.listenersMu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Filters returns a copy of the current filters.
func (s *State) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Filters{
		Highlight:      maps.Clone(s.highlight),
		Hide:           maps.Clone(s.hide),
		HideBadlyRated: s.hideBadlyRated,
		ClientID:       s.clientID,
	}
}

// SetTagFilters replaces both tag sets, as the tag panel's apply button does.
func (s *State) SetTagFilters(highlight, hide []string) {
	s.mu.Lock()
	s.highlight = toSet(highlight)
	s.hide = toSet(hide)
	route := s.route
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeFilters, Route: route})
}

// ToggleTag flips tagID in the set selected by the current tag mode.
func (s *State) ToggleTag(tagID string) {
	s.mu.Lock()
	set := s.highlight
	if s.tagMode == TagModeHide {
		set = s.hide
	}
	if set[tagID] {
		delete(set, tagID)
	} else {
		set[tagID] = true
	}
	route := s.route
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeFilters, Route: route})
}

// ResetFilters clears both tag sets.
func (s *State) ResetFilters() {
	s.SetTagFilters(nil, nil)
}

// TagMode returns the set the tag panel edits.
func (s *State) TagMode() TagMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tagMode
}

// SetTagMode selects the set the tag panel edits.
func (s *State) SetTagMode(mode TagMode) error {
	if mode != TagModeHighlight && mode != TagModeHide {
		return domainerrors.Validationf("unknown tag mode %q", mode)
	}
	s.mu.Lock()
	s.tagMode = mode
	s.mu.Unlock()
	return nil
}

// SetHideBadlyRated sets the toggle.
func (s *State) SetHideBadlyRated(on bool) {
	s.mu.Lock()
	changed := s.hideBadlyRated != on
	s.hideBadlyRated = on
	route := s.route
	s.mu.Unlock()

	if changed {
		s.notify(Change{Kind: ChangeFilters, Route: route})
	}
}

// ClientID returns the anonymous per-vote key.
func (s *State) ClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientID
}

// Route returns the current location.
func (s *State) Route() Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route
}

// Navigate switches to r and records it in history, discarding any forward
// entries. Screens that need a session fall back to main without one.
// It returns the route actually shown.
func (s *State) Navigate(r Route) Route {
	s.mu.Lock()
	r = s.allowedLocked(r)
	if r == s.route {
		s.mu.Unlock()
		return r
	}
	s.history = append(s.history[:s.cursor+1], r)
	s.cursor = len(s.history) - 1
	s.route = r
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRoute, Route: r})
	return r
}

// Back moves one entry back in history.
func (s *State) Back() (Route, bool) {
	return s.step(-1)
}

// Forward moves one entry forward in history.
func (s *State) Forward() (Route, bool) {
	return s.step(1)
}

func (s *State) step(delta int) (Route, bool) {
	s.mu.Lock()
	next := s.cursor + delta
	if next < 0 || next >= len(s.history) {
		r := s.route
		s.mu.Unlock()
		return r, false
	}
	s.cursor = next
	s.route = s.allowedLocked(s.history[next])
	r := s.route
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeRoute, Route: r})
	return r, true
}

func (s *State) allowedLocked(r Route) Route {
	if !r.Screen.Valid() {
		return MainRoute
	}
	if r.Screen == domain.ScreenPublicList && r.ListID == "" {
		return MainRoute
	}
	if r.Screen != domain.ScreenPublicList {
		r.ListID = ""
	}
	if r.Screen.RequiresAuth() && s.user == nil {
		return MainRoute
	}
	return r
}

// ActiveList returns the list shown on the my-lists screen.
func (s *State) ActiveList() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeListID
}

// SetActiveList selects the list shown on the my-lists screen and resets its page.
func (s *State) SetActiveList(listID string) {
	s.mu.Lock()
	s.activeListID = listID
	s.pages[domain.ViewMyList] = 1
	s.mu.Unlock()
}

// Page returns the current 1-based page of v.
func (s *State) Page(v domain.View) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.pages[v]; p > 0 {
		return p
	}
	return 1
}

// SetPage records the page of v. Values below 1 are stored as 1.
func (s *State) SetPage(v domain.View, page int) {
	s.mu.Lock()
	s.pages[v] = max(page, 1)
	s.mu.Unlock()
}

// PageSize returns the page size of a category.
func (s *State) PageSize(c domain.PageCategory) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageSizes[c]
}

// SetPageSize changes a category's page size and returns its views to page 1.
func (s *State) SetPageSize(c domain.PageCategory, size int) error {
	if size < 1 {
		return domainerrors.Validationf("page size must be positive, got %d", size)
	}
	s.mu.Lock()
	s.pageSizes[c] = size
	for _, v := range domain.AllViews {
		if v.Category() == c {
			s.pages[v] = 1
		}
	}
	s.mu.Unlock()
	return nil
}

// User returns the signed-in user, or nil.
func (s *State) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// SignedIn reports whether a user is signed in.
func (s *State) SignedIn() bool {
	return s.User() != nil
}

// SetUser records a sign-in, or a sign-out when u is nil. Signing out of a
// screen that needs a session returns to main.
func (s *State) SetUser(u *domain.User) {
	s.mu.Lock()
	s.user = u
	if u == nil {
		s.activeListID = ""
	}
	fallback := u == nil && s.route.Screen.RequiresAuth()
	route := s.route
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUser, Route: route})
	if fallback {
		s.Navigate(MainRoute)
	}
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			out[id] = true
		}
	}
	return out
}
