// Package settings loads and persists the session-local preferences: page sizes,
// display toggles, collapsed sections and the anonymous client id.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/shareboard/shareboard/internal/domain"
	domainerrors "github.com/shareboard/shareboard/internal/errors"
	"github.com/shareboard/shareboard/internal/store/sqlite"
)

// DeviceClass selects the page size options offered.
type DeviceClass string

// Device classes.
const (
	DeviceMobile DeviceClass = "mobile"
	DevicePC     DeviceClass = "pc"
)

// Sections that can be collapsed.
const (
	SectionAdmin = "admin"
	SectionUser  = "user"
)

// Preference keys.
const (
	keyClientID        = "clientId"
	keyMosaic          = "mosaicActive"
	keyGridHeightFixed = "isGridHeightFixedForMobile"
	keyAutoScroll      = "autoScrollOnPageChange"
)

var pageSizeKeys = map[domain.PageCategory]string{
	domain.CategoryAdmin:     "pageSizeAdmin",
	domain.CategoryUser:      "pageSizeUser",
	domain.CategoryFavorites: "pageSizeFavorites",
}

func collapsedKey(section string) string {
	return section + "SectionCollapsed"
}

// pageSizeOptions are the sizes offered per device class.
var pageSizeOptions = map[DeviceClass]map[domain.PageCategory][]int{
	DeviceMobile: {
		domain.CategoryAdmin:     {8, 10, 12},
		domain.CategoryUser:      {10, 16, 20},
		domain.CategoryFavorites: {10, 20, 30},
	},
	DevicePC: {
		domain.CategoryAdmin:     {5, 10, 15},
		domain.CategoryUser:      {10, 20, 40},
		domain.CategoryFavorites: {10, 20, 40},
	},
}

var defaultPageSizes = map[domain.PageCategory]int{
	domain.CategoryAdmin:     10,
	domain.CategoryUser:      40,
	domain.CategoryFavorites: 40,
}

// Preferences is a snapshot of every setting.
type Preferences struct {
	ClientID        string                      `json:"clientId"`
	PageSizes       map[domain.PageCategory]int `json:"pageSizes"`
	GridHeightFixed bool                        `json:"gridHeightFixed"`
	AutoScroll      bool                        `json:"autoScroll"`
	Mosaic          bool                        `json:"mosaic"`
	Collapsed       map[string]bool             `json:"collapsed"`
}

func (p Preferences) clone() Preferences {
	p.PageSizes = maps.Clone(p.PageSizes)
	p.Collapsed = maps.Clone(p.Collapsed)
	return p
}

// Service owns the preferences of one device.
type Service struct {
	store  *sqlite.Store
	device DeviceClass
	logger *slog.Logger

	mu    sync.RWMutex
	prefs Preferences

	listenersMu sync.RWMutex
	listeners   []func(Preferences)
}

// NewService creates a service for device. Call Load before use.
func NewService(store *sqlite.Store, device DeviceClass, logger *slog.Logger) (*Service, error) {
	if _, ok := pageSizeOptions[device]; !ok {
		return nil, domainerrors.Validationf("unknown device class %q", device)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, device: device, logger: logger}, nil
}

// Options returns the page sizes offered for a category.
func (s *Service) Options(c domain.PageCategory) []int {
	return slices.Clone(pageSizeOptions[s.device][c])
}

// Load reads every preference, applying defaults, and creates the client id on
// first run.
func (s *Service) Load(ctx context.Context) (Preferences, error) {
	stored, err := s.store.All(ctx)
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}

	p := Preferences{
		ClientID:        stored[keyClientID],
		PageSizes:       make(map[domain.PageCategory]int, len(pageSizeKeys)),
		GridHeightFixed: boolOr(stored, keyGridHeightFixed, true),
		AutoScroll:      boolOr(stored, keyAutoScroll, true),
		Mosaic:          boolOr(stored, keyMosaic, false),
		Collapsed: map[string]bool{
			SectionAdmin: boolOr(stored, collapsedKey(SectionAdmin), false),
			SectionUser:  boolOr(stored, collapsedKey(SectionUser), false),
		},
	}

	for c, key := range pageSizeKeys {
		size := defaultPageSizes[c]
		if v, err := strconv.Atoi(stored[key]); err == nil {
			size = v
		}
		p.PageSizes[c] = s.offered(c, size)
	}

	if p.ClientID == "" {
		p.ClientID = uuid.NewString()
		if err := s.store.Set(ctx, keyClientID, p.ClientID); err != nil {
			return Preferences{}, fmt.Errorf("persist client id: %w", err)
		}
		s.logger.Info("generated anonymous client id", slog.String("client_id", p.ClientID))
	}

	s.mu.Lock()
	s.prefs = p
	s.mu.Unlock()
	return p.clone(), nil
}

// offered returns size when the device offers it for c, else the first option.
func (s *Service) offered(c domain.PageCategory, size int) int {
	opts := pageSizeOptions[s.device][c]
	if slices.Contains(opts, size) {
		return size
	}
	return opts[0]
}

// Get returns the current preferences.
func (s *Service) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.clone()
}

// OnChange registers fn for every change, including reloads triggered by Watch.
func (s *Service) OnChange(fn func(Preferences)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Service) notify() {
	p := s.Get()
	s.listenersMu.RLock()
	fns := slices.Clone(s.listeners)
	s.listenersMu.RUnlock()
	for _, fn := range fns {
		fn(p)
	}
}

// SetPageSize stores the page size of a category. Only offered sizes are accepted.
func (s *Service) SetPageSize(ctx context.Context, c domain.PageCategory, size int) error {
	key, ok := pageSizeKeys[c]
	if !ok {
		return domainerrors.Validationf("unknown page size category %q", c)
	}
	if !slices.Contains(pageSizeOptions[s.device][c], size) {
		return domainerrors.Validationf("page size %d is not offered for %s", size, c)
	}
	return s.update(ctx, key, strconv.Itoa(size), func(p *Preferences) { p.PageSizes[c] = size })
}

// SetMosaic toggles cover blurring.
func (s *Service) SetMosaic(ctx context.Context, on bool) error {
	return s.update(ctx, keyMosaic, strconv.FormatBool(on), func(p *Preferences) { p.Mosaic = on })
}

// SetGridHeightFixed toggles fixed grid heights on mobile.
func (s *Service) SetGridHeightFixed(ctx context.Context, on bool) error {
	return s.update(ctx, keyGridHeightFixed, strconv.FormatBool(on), func(p *Preferences) { p.GridHeightFixed = on })
}

// SetAutoScroll toggles scrolling to the grid after a page change.
func (s *Service) SetAutoScroll(ctx context.Context, on bool) error {
	return s.update(ctx, keyAutoScroll, strconv.FormatBool(on), func(p *Preferences) { p.AutoScroll = on })
}

// SetCollapsed stores whether a section is collapsed.
func (s *Service) SetCollapsed(ctx context.Context, section string, collapsed bool) error {
	if section != SectionAdmin && section != SectionUser {
		return domainerrors.Validationf("unknown section %q", section)
	}
	return s.update(ctx, collapsedKey(section), strconv.FormatBool(collapsed), func(p *Preferences) {
		p.Collapsed[section] = collapsed
	})
}

func (s *Service) update(ctx context.Context, key, value string, apply func(*Preferences)) error {
	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	s.mu.Lock()
	if s.prefs.PageSizes == nil {
		s.prefs.PageSizes = make(map[domain.PageCategory]int)
	}
	if s.prefs.Collapsed == nil {
		s.prefs.Collapsed = make(map[string]bool)
	}
	apply(&s.prefs)
	s.mu.Unlock()

	s.notify()
	return nil
}

func boolOr(stored map[string]string, key string, def bool) bool {
	v, err := strconv.ParseBool(stored[key])
	if err != nil {
		return def
	}
	return v
}
