package domain

// View names a paginated, ordered sequence of works.
type View string

// Paginated views.
const (
	ViewNew          View = "new"
	ViewRanking      View = "ranking"
	ViewAdminManga   View = "admin_manga"
	ViewAdminGame    View = "admin_game"
	ViewAdminUnknown View = "admin_unknown"
	ViewFavorites    View = "favorites"
	ViewMyList       View = "my_list"
	ViewPublicList   View = "public_list"
)

// AllViews lists every paginated view in display order.
var AllViews = []View{
	ViewAdminManga, ViewAdminGame, ViewAdminUnknown,
	ViewNew, ViewRanking, ViewFavorites,
	ViewMyList, ViewPublicList,
}

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	for _, known := range AllViews {
		if v == known {
			return true
		}
	}
	return false
}

// IsAdmin reports whether v is an admin curation view.
func (v View) IsAdmin() bool {
	return v == ViewAdminManga || v == ViewAdminGame || v == ViewAdminUnknown
}

// HidesBadlyRated reports whether the hide-badly-rated toggle applies to v.
// Only user-facing feeds are affected; curation and favorites never are.
func (v View) HidesBadlyRated() bool {
	return v == ViewNew || v == ViewRanking
}

// Category returns the page-size category of v.
func (v View) Category() PageCategory {
	switch {
	case v.IsAdmin():
		return CategoryAdmin
	case v == ViewFavorites:
		return CategoryFavorites
	default:
		return CategoryUser
	}
}

// PageCategory groups views that share a page size.
type PageCategory string

// Page size categories.
const (
	CategoryAdmin     PageCategory = "admin"
	CategoryUser      PageCategory = "user"
	CategoryFavorites PageCategory = "favorites"
)

// Screen is a top-level navigable screen.
type Screen string

// Screens.
const (
	ScreenMain       Screen = "main"
	ScreenFavorites  Screen = "favorites"
	ScreenMyLists    Screen = "mylists"
	ScreenPublicList Screen = "publicList"
)

// RequiresAuth reports whether the screen needs a signed-in user.
func (s Screen) RequiresAuth() bool {
	return s == ScreenFavorites || s == ScreenMyLists
}

// Views returns the paginated views shown on the screen.
func (s Screen) Views() []View {
	switch s {
	case ScreenFavorites:
		return []View{ViewFavorites}
	case ScreenMyLists:
		return []View{ViewMyList}
	case ScreenPublicList:
		return []View{ViewPublicList}
	default:
		return []View{ViewAdminManga, ViewAdminGame, ViewNew, ViewRanking}
	}
}

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenMain, ScreenFavorites, ScreenMyLists, ScreenPublicList:
		return true
	}
	return false
}
