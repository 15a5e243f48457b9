package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareboard/shareboard/internal/cache"
	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/mutation"
	"github.com/shareboard/shareboard/internal/remote"
	"github.com/shareboard/shareboard/internal/search"
)

func TestSession_SignInAndOut(t *testing.T) {
	ts := setupTestServer(t)
	ts.start(t)

	resp := ts.api.Get("/api/v1/session")
	require.Equal(t, http.StatusOK, resp.Code)
	_, session := decodeEnvelope[SessionResponse](t, resp)
	assert.NotEmpty(t, session.ClientID)
	assert.False(t, session.SignedIn)

	resp = ts.api.Put("/api/v1/session", map[string]any{"uid": "u1", "displayName": "Aki"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	_, session = decodeEnvelope[SessionResponse](t, resp)
	assert.True(t, session.SignedIn)
	require.NotNil(t, session.User)
	assert.Equal(t, "u1", session.User.UID)

	resp = ts.api.Delete("/api/v1/session")
	require.Equal(t, http.StatusOK, resp.Code)
	_, session = decodeEnvelope[SessionResponse](t, resp)
	assert.False(t, session.SignedIn)
}

func TestRoute_AuthScreensNeedSession(t *testing.T) {
	ts := setupTestServer(t)
	ts.start(t)

	resp := ts.api.Put("/api/v1/route", map[string]any{"query": "?view=favorites"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	_, route := decodeEnvelope[RouteResponse](t, resp)
	assert.Equal(t, domain.ScreenMain, route.Screen)

	ts.api.Put("/api/v1/session", map[string]any{"uid": "u1"})

	resp = ts.api.Put("/api/v1/route", map[string]any{"screen": "favorites"})
	_, route = decodeEnvelope[RouteResponse](t, resp)
	assert.Equal(t, domain.ScreenFavorites, route.Screen)
	assert.Equal(t, "?view=favorites", route.Query)
	assert.Equal(t, []domain.View{domain.ViewFavorites}, route.Views)

	resp = ts.api.Post("/api/v1/route/back")
	_, route = decodeEnvelope[RouteResponse](t, resp)
	assert.True(t, route.Moved)
	assert.Equal(t, domain.ScreenMain, route.Screen)

	resp = ts.api.Post("/api/v1/route/back")
	_, route = decodeEnvelope[RouteResponse](t, resp)
	assert.False(t, route.Moved, "nothing before the first entry")
}

func TestRoute_UnknownPublicListReturnsToMain(t *testing.T) {
	ts := setupTestServer(t)
	ts.start(t)

	resp := ts.api.Get("/api/v1/public-lists/missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	env, _ := decodeEnvelope[any](t, resp)
	assert.Equal(t, string(domainerrors.CodeNotFound), env.Code)
	assert.Equal(t, domain.ScreenMain, ts.engine.State.Route().Screen)
}

func TestPages_AdminShelf(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.Update(ctx, map[string]any{
		"adminPicks/p1": domain.Work{Title: "Comic one", ManualGenre: domain.GenreManga, Timestamp: 2},
		"adminPicks/p2": domain.Work{Title: "Game one", ManualGenre: domain.GenreGame, Timestamp: 1},
	}))
	ts.start(t)

	var page PageResponse
	require.Eventually(t, func() bool {
		resp := ts.api.Get("/api/v1/views/admin_manga/pages/1")
		if resp.Code != http.StatusOK {
			return false
		}
		_, page = decodeEnvelope[PageResponse](t, resp)
		return len(page.Items) == 1
	}, waitFor, tick)

	assert.Equal(t, domain.ViewAdminManga, page.View)
	assert.Equal(t, "Comic one", page.Items[0].Work.Title)
	assert.Empty(t, page.Placeholders, "mosaic is off by default")

	// Out of range pages are clamped.
	resp := ts.api.Get("/api/v1/views/admin_manga/pages/99")
	_, page = decodeEnvelope[PageResponse](t, resp)
	assert.Equal(t, 1, page.Number)

	resp = ts.api.Get("/api/v1/views/admin_manga")
	_, page = decodeEnvelope[PageResponse](t, resp)
	assert.Equal(t, 1, page.Number)
}

func TestPages_UnknownViewRejected(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/views/popular/pages/1")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	env, _ := decodeEnvelope[any](t, resp)
	assert.False(t, env.Success)
	assert.Equal(t, string(domainerrors.CodeValidation), env.Code)
}

func TestFilters(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/api/v1/filters", map[string]any{
		"highlight":      []string{"t2", "t1"},
		"hideBadlyRated": true,
		"tagMode":        "hide",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	_, f := decodeEnvelope[FiltersResponse](t, resp)
	assert.Equal(t, []string{"t1", "t2"}, f.Highlight)
	assert.Empty(t, f.Hide)
	assert.True(t, f.HideBadlyRated)
	assert.Equal(t, "hide", string(f.TagMode))

	resp = ts.api.Post("/api/v1/filters/tags/t3/toggle")
	_, f = decodeEnvelope[FiltersResponse](t, resp)
	assert.Equal(t, []string{"t3"}, f.Hide)

	resp = ts.api.Delete("/api/v1/filters")
	_, f = decodeEnvelope[FiltersResponse](t, resp)
	assert.Empty(t, f.Highlight)
	assert.Empty(t, f.Hide)
	assert.True(t, f.HideBadlyRated, "reset only clears tag sets")
}

func TestSettings_Update(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/settings")
	require.Equal(t, http.StatusOK, resp.Code)
	_, got := decodeEnvelope[SettingsResponse](t, resp)
	assert.Equal(t, []int{10, 20, 40}, got.PageSizeOptions[domain.CategoryUser])

	resp = ts.api.Patch("/api/v1/settings", map[string]any{
		"pageSizes": map[string]int{"user": 20},
		"mosaic":    true,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	_, got = decodeEnvelope[SettingsResponse](t, resp)
	assert.Equal(t, 20, got.PageSizes[domain.CategoryUser])
	assert.True(t, got.Mosaic)
	assert.Equal(t, 20, ts.engine.State.PageSize(domain.CategoryUser))

	resp = ts.api.Patch("/api/v1/settings", map[string]any{"pageSizes": map[string]int{"user": 7}})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestVote_TogglesThroughAPI(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.store.Set(context.Background(), "works/w1", domain.Work{Title: "Night Shift", Timestamp: 1}))
	ts.start(t)

	require.Eventually(t, func() bool {
		_, ok := ts.engine.Cache.Work("w1")
		return ok
	}, waitFor, tick)

	resp := ts.api.Post("/api/v1/works/w1/vote", map[string]any{"score": 1})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	_, res := decodeEnvelope[mutation.VoteResult](t, resp)
	assert.Equal(t, 1, res.Vote)
	assert.Equal(t, 1, res.Score)

	resp = ts.api.Post("/api/v1/works/w1/vote", map[string]any{"score": 1})
	_, res = decodeEnvelope[mutation.VoteResult](t, resp)
	assert.Equal(t, 0, res.Vote)
	assert.Equal(t, 0, res.Score)

	resp = ts.api.Post("/api/v1/works/w1/vote", map[string]any{"score": 3})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestLists_RequireSignIn(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/lists", map[string]any{"name": "Mine"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	env, _ := decodeEnvelope[any](t, resp)
	assert.Equal(t, string(domainerrors.CodeUnauthorized), env.Code)
}

func TestLists_CreateRenameDelete(t *testing.T) {
	ts := setupTestServer(t)
	ts.start(t)
	ts.api.Put("/api/v1/session", map[string]any{"uid": "u1", "displayName": "Aki"})
	require.Eventually(t, func() bool { return ts.engine.Cache.Loaded(cache.MyLists) }, waitFor, tick)

	resp := ts.api.Post("/api/v1/lists", map[string]any{"name": "Mine"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	_, created := decodeEnvelope[ListSummary](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Mine", created.Name)
	assert.Equal(t, "u1", created.OwnerID)

	resp = ts.api.Get("/api/v1/lists")
	_, mine := decodeEnvelope[MyListsResponse](t, resp)
	require.Len(t, mine.Lists, 1)
	assert.Equal(t, domain.DefaultMaxLists, mine.MaxLists)

	resp = ts.api.Patch("/api/v1/lists/"+created.ID, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	_, renamed := decodeEnvelope[ListSummary](t, resp)
	assert.Equal(t, "Renamed", renamed.Name)

	resp = ts.api.Delete("/api/v1/lists/" + created.ID)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	snap, err := ts.store.Get(context.Background(), remote.Join(remote.PathLists, created.ID))
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestSearchTags(t *testing.T) {
	ts := setupTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.Update(ctx, map[string]any{
		"tags/t1":       domain.Tag{Name: "horror", Category: "c1"},
		"tags/t2":       domain.Tag{Name: "romance", Category: "c1"},
		"categories/c1": domain.Category{Name: "Genre"},
	}))
	ts.start(t)

	var hits []search.TagHit
	require.Eventually(t, func() bool {
		resp := ts.api.Get("/api/v1/tags?q=HOR")
		_, body := decodeEnvelope[SearchTagsResponse](t, resp)
		hits = body.Tags
		return len(hits) == 1
	}, waitFor, tick)
	assert.Equal(t, "t1", hits[0].ID)
}

func TestContact(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/contact", map[string]any{"name": "Aki"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = ts.api.Post("/api/v1/contact", map[string]any{
		"name":    "Aki",
		"email":   "aki@example.com",
		"content": "The ranking looks stale.",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	_, res := decodeEnvelope[ContactResponse](t, resp)
	require.NotEmpty(t, res.ID)

	snap, err := ts.store.Get(context.Background(), remote.Join(remote.PathContacts, res.ID, "content"))
	require.NoError(t, err)
	assert.True(t, snap.Exists())
}
