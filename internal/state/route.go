package state

import (
	"net/url"
	"strings"

	"github.com/shareboard/shareboard/internal/domain"
)

// Address query parameters. They are the only externally addressable state.
const (
	paramView = "view"
	paramList = "list"
)

// Route is a navigable location: a screen and, for a shared list, its id.
type Route struct {
	Screen domain.Screen `json:"screen"`
	ListID string        `json:"listId,omitempty"`
}

// MainRoute is the default location.
var MainRoute = Route{Screen: domain.ScreenMain}

// Query renders the route as an address query string, including the leading "?".
// The main screen has no parameters.
func (r Route) Query() string {
	v := url.Values{}
	switch r.Screen {
	case domain.ScreenMain:
		return ""
	case domain.ScreenPublicList:
		v.Set(paramList, r.ListID)
	default:
		v.Set(paramView, string(r.Screen))
	}
	return "?" + v.Encode()
}

// ParseRoute reads a route from an address query. A list id wins over a view
// name; unknown views resolve to the main screen.
func ParseRoute(rawQuery string) Route {
	v, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return MainRoute
	}
	if listID := strings.TrimSpace(v.Get(paramList)); listID != "" {
		return Route{Screen: domain.ScreenPublicList, ListID: listID}
	}
	screen := domain.Screen(v.Get(paramView))
	if screen == domain.ScreenPublicList || !screen.Valid() {
		return MainRoute
	}
	return Route{Screen: screen}
}
