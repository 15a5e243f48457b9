package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/domain"
)

func TestRoute_QueryRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		route Route
		query string
	}{
		{"main", MainRoute, ""},
		{"favorites", Route{Screen: domain.ScreenFavorites}, "?view=favorites"},
		{"my lists", Route{Screen: domain.ScreenMyLists}, "?view=mylists"},
		{"public list", Route{Screen: domain.ScreenPublicList, ListID: "-Nabc"}, "?list=-Nabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.query, tt.route.Query())
			assert.Equal(t, tt.route, ParseRoute(tt.query))
		})
	}
}

func TestParseRoute_Fallbacks(t *testing.T) {
	assert.Equal(t, MainRoute, ParseRoute("?view=nowhere"))
	assert.Equal(t, MainRoute, ParseRoute("?view=publicList"))
	assert.Equal(t, Route{Screen: domain.ScreenPublicList, ListID: "l1"}, ParseRoute("view=favorites&list=l1"))
}

func TestNavigate_AuthFallback(t *testing.T) {
	s := New("client")

	got := s.Navigate(Route{Screen: domain.ScreenFavorites})
	assert.Equal(t, MainRoute, got)

	s.SetUser(&domain.User{UID: "u1"})
	got = s.Navigate(Route{Screen: domain.ScreenFavorites})
	assert.Equal(t, domain.ScreenFavorites, got.Screen)

	// Signing out of an auth-only screen returns to main.
	s.SetUser(nil)
	assert.Equal(t, MainRoute, s.Route())
}

func TestHistory_BackAndForward(t *testing.T) {
	s := New("client")
	s.SetUser(&domain.User{UID: "u1"})

	s.Navigate(Route{Screen: domain.ScreenFavorites})
	s.Navigate(Route{Screen: domain.ScreenMyLists})

	r, ok := s.Back()
	require.True(t, ok)
	assert.Equal(t, domain.ScreenFavorites, r.Screen)

	r, ok = s.Back()
	require.True(t, ok)
	assert.Equal(t, domain.ScreenMain, r.Screen)

	_, ok = s.Back()
	assert.False(t, ok)

	r, ok = s.Forward()
	require.True(t, ok)
	assert.Equal(t, domain.ScreenFavorites, r.Screen)

	// Navigating after going back drops the forward entries.
	s.Navigate(Route{Screen: domain.ScreenPublicList, ListID: "l1"})
	_, ok = s.Forward()
	assert.False(t, ok)
}

func TestFilters_NotifyAndCopy(t *testing.T) {
	s := New("client")

	var kinds []ChangeKind
	s.OnChange(func(c Change) { kinds = append(kinds, c.Kind) })

	s.SetTagFilters([]string{"t2"}, []string{"t1"})
	f := s.Filters()
	assert.True(t, f.Active())
	assert.True(t, f.Hide["t1"])
	assert.True(t, f.Highlight["t2"])

	// Mutating the copy does not touch the state.
	f.Hide["t9"] = true
	assert.False(t, s.Filters().Hide["t9"])

	require.NoError(t, s.SetTagMode(TagModeHide))
	s.ToggleTag("t1")
	assert.False(t, s.Filters().Hide["t1"])

	s.SetHideBadlyRated(true)
	s.SetHideBadlyRated(true) // unchanged, no notification
	s.ResetFilters()
	assert.False(t, s.Filters().Active())

	assert.Equal(t, []ChangeKind{ChangeFilters, ChangeFilters, ChangeFilters, ChangeFilters}, kinds)
	assert.Error(t, s.SetTagMode("both"))
}

func TestPagination(t *testing.T) {
	s := New("client")

	assert.Equal(t, 1, s.Page(domain.ViewNew))
	s.SetPage(domain.ViewNew, 4)
	s.SetPage(domain.ViewAdminGame, -3)
	assert.Equal(t, 4, s.Page(domain.ViewNew))
	assert.Equal(t, 1, s.Page(domain.ViewAdminGame))

	require.NoError(t, s.SetPageSize(domain.CategoryUser, 20))
	assert.Equal(t, 20, s.PageSize(domain.CategoryUser))
	assert.Equal(t, 1, s.Page(domain.ViewNew), "page size change resets the category's pages")

	assert.Error(t, s.SetPageSize(domain.CategoryUser, 0))
}
