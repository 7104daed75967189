package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tfkr-ae/explorer/api"
	"github.com/tfkr-ae/explorer/cache"
	"github.com/tfkr-ae/explorer/domain"
	"github.com/tfkr-ae/explorer/refresh"
)

// Backend is what the TUI needs from the explorer.
type Backend interface {
	TrackView(path string, attributes map[string]any)
	Records() []domain.ActivityRecord
	Subscribe(key string) *cache.Subscription
	Invalidate(key string)
	NavigationRefresher() (*refresh.Coordinator, error)
	CategoryRefresher(categoryID, slug string) (*refresh.Coordinator, error)
	ProductRefresher(productID string) (*refresh.Coordinator, error)
}

type page int

const (
	pageHome page = iota
	pageCategory
	pageProduct
	pageHistory
)

// route identifies one page instance.
type route struct {
	page      page
	slug      string // category slug
	productID string
}

// key returns the cache key of the page's primary resource, empty for the history page.
func (r route) key() string {
	switch r.page {
	case pageHome:
		return api.NavigationPath
	case pageCategory:
		return api.CategoryPath(r.slug)
	case pageProduct:
		return api.ProductPath(r.productID)
	}
	return ""
}

// routeFromPath maps a tracked view path back to its page.
func routeFromPath(path string) (route, bool) {
	switch {
	case path == "/":
		return route{page: pageHome}, true
	case strings.HasPrefix(path, "/categories/") && len(path) > len("/categories/"):
		return route{page: pageCategory, slug: strings.TrimPrefix(path, "/categories/")}, true
	case strings.HasPrefix(path, "/products/") && len(path) > len("/products/"):
		return route{page: pageProduct, productID: strings.TrimPrefix(path, "/products/")}, true
	}
	return route{}, false
}

// navigateMsg mounts a page.
type navigateMsg struct {
	route route
}

// snapshotMsg delivers a cache snapshot of the subscription it was read from.
type snapshotMsg struct {
	sub      *cache.Subscription
	snapshot cache.Snapshot
}

// refreshDoneMsg reports the outcome of a refresh started from this model.
type refreshDoneMsg struct {
	key string
	err error
}

// Model is the bubbletea model of the explorer TUI.
type Model struct {
	backend Backend
	keys    KeyMap
	styles  styles

	route route
	stack []route // pages to return to with Back

	sub         *cache.Subscription
	snapshot    cache.Snapshot
	trackedData json.RawMessage // data of the last tracked view of the current page

	navigation []domain.NavigationItem
	category   *domain.Category
	product    *domain.Product
	records    []domain.ActivityRecord

	cursor     int
	refreshing map[string]bool // keys of refreshes started here and not finished
	refreshErr error           // failure of the last refresh of the current page

	width  int
	height int
}

// NewModel creates the TUI model. The home page is mounted by Init.
func NewModel(backend Backend) Model {
	return Model{
		backend:    backend,
		keys:       DefaultKeyMap,
		styles:     newStyles(DefaultTheme),
		refreshing: make(map[string]bool),
	}
}

// SetTheme replaces the color scheme. Call it before running the program.
func (model *Model) SetTheme(theme Theme) {
	model.styles = newStyles(theme)
}

// Init implements tea.Model by mounting the home page.
func (model Model) Init() tea.Cmd {
	return func() tea.Msg {
		return navigateMsg{route: route{page: pageHome}}
	}
}

// waitForSnapshot returns a tea.Cmd that blocks until the subscription
// publishes a snapshot. It returns nil once the subscription is closed.
func waitForSnapshot(sub *cache.Subscription) tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-sub.Updates()
		if !ok {
			return nil
		}
		return snapshotMsg{sub: sub, snapshot: snapshot}
	}
}

// runRefresh returns a tea.Cmd that runs the coordinator's mutation.
func runRefresh(coordinator *refresh.Coordinator) tea.Cmd {
	return func() tea.Msg {
		err := coordinator.Refresh(context.Background())
		return refreshDoneMsg{key: coordinator.Key(), err: err}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil

	case navigateMsg:
		return model.mount(message.route)

	case snapshotMsg:
		// Snapshots of a page that was left are dropped.
		if message.sub != model.sub {
			return model, nil
		}
		model = model.applySnapshot(message.snapshot)
		return model, waitForSnapshot(model.sub)

	case refreshDoneMsg:
		delete(model.refreshing, message.key)
		if message.err != nil && !errors.Is(message.err, refresh.ErrInFlight) && message.key == model.route.key() {
			model.refreshErr = message.err
		}
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		if model.sub != nil {
			model.sub.Close()
			model.sub = nil
		}
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
		return model, nil

	case key.Matches(message, model.keys.Down):
		if model.cursor < model.itemCount()-1 {
			model.cursor++
		}
		return model, nil

	case key.Matches(message, model.keys.Open):
		next, ok := model.selectedRoute()
		if !ok {
			return model, nil
		}
		return model.push(next)

	case key.Matches(message, model.keys.Back):
		if len(model.stack) == 0 {
			return model, nil
		}
		previous := model.stack[len(model.stack)-1]
		model.stack = model.stack[:len(model.stack)-1]
		return model.mount(previous)

	case key.Matches(message, model.keys.History):
		if model.route.page == pageHistory {
			return model, nil
		}
		return model.push(route{page: pageHistory})

	case key.Matches(message, model.keys.Refresh):
		return model.startRefresh()

	case key.Matches(message, model.keys.Retry):
		if model.snapshot.Err != nil && model.route.key() != "" {
			model.backend.Invalidate(model.route.key())
		}
		return model, nil
	}
	return model, nil
}

func (model Model) push(next route) (Model, tea.Cmd) {
	model.stack = append(model.stack[:len(model.stack):len(model.stack)], model.route)
	return model.mount(next)
}

// mount leaves the current page and shows next. The home page is tracked on
// mount; category and product pages are tracked when their data arrives.
func (model Model) mount(next route) (Model, tea.Cmd) {
	if model.sub != nil {
		model.sub.Close()
		model.sub = nil
	}

	model.route = next
	model.cursor = 0
	model.snapshot = cache.Snapshot{Key: next.key()}
	model.trackedData = nil
	model.navigation = nil
	model.category = nil
	model.product = nil
	model.records = nil
	model.refreshErr = nil

	switch next.page {
	case pageHistory:
		model.records = model.backend.Records()
		return model, nil
	case pageHome:
		model.backend.TrackView("/", map[string]any{"page": "home"})
	}

	model.sub = model.backend.Subscribe(next.key())
	return model, waitForSnapshot(model.sub)
}

func (model Model) applySnapshot(snapshot cache.Snapshot) Model {
	model.snapshot = snapshot
	if !snapshot.HasData() {
		return model
	}

	var err error
	switch model.route.page {
	case pageHome:
		var items []domain.NavigationItem
		if err = snapshot.Decode(&items); err == nil {
			model.navigation = items
		}
	case pageCategory:
		var category domain.Category
		if err = snapshot.Decode(&category); err == nil {
			model.category = &category
		}
	case pageProduct:
		var product domain.Product
		if err = snapshot.Decode(&product); err == nil {
			model.product = &product
		}
	}
	if err != nil {
		model.snapshot.Err = fmt.Errorf("decoding %s : %w", snapshot.Key, err)
		return model
	}

	if model.cursor >= model.itemCount() {
		model.cursor = max(model.itemCount()-1, 0)
	}
	return model.track(snapshot.Data)
}

// track records a view of the current page each time its data changes.
func (model Model) track(data json.RawMessage) Model {
	if model.trackedData != nil && bytes.Equal(model.trackedData, data) {
		return model
	}

	switch {
	case model.route.page == pageCategory && model.category != nil:
		model.backend.TrackView("/categories/"+model.route.slug, map[string]any{
			"categoryId":    model.category.IDValue(),
			"categoryTitle": model.category.Title,
		})
	case model.route.page == pageProduct && model.product != nil:
		model.backend.TrackView("/products/"+model.route.productID, map[string]any{
			"productId":    model.route.productID,
			"productTitle": model.product.Title,
		})
	default:
		return model
	}
	model.trackedData = data
	return model
}

func (model Model) startRefresh() (Model, tea.Cmd) {
	coordinator, err := model.coordinator()
	if err != nil || coordinator == nil {
		return model, nil
	}
	if model.refreshing[coordinator.Key()] || coordinator.State() == refresh.InFlight {
		return model, nil
	}

	model.refreshing[coordinator.Key()] = true
	model.refreshErr = nil
	return model, runRefresh(coordinator)
}

// coordinator returns the refresh coordinator of the current page, nil when it has none.
func (model Model) coordinator() (*refresh.Coordinator, error) {
	switch model.route.page {
	case pageHome:
		return model.backend.NavigationRefresher()
	case pageCategory:
		// the mutation is addressed by id, known once the category has loaded
		if model.category == nil {
			return nil, nil
		}
		return model.backend.CategoryRefresher(model.category.ID.String(), model.route.slug)
	case pageProduct:
		return model.backend.ProductRefresher(model.route.productID)
	}
	return nil, nil
}

func (model Model) itemCount() int {
	switch model.route.page {
	case pageHome:
		return len(model.navigation)
	case pageCategory:
		if model.category == nil {
			return 0
		}
		return len(model.category.Children) + len(model.category.Products)
	case pageHistory:
		return len(model.records)
	}
	return 0
}

// selectedRoute returns the page the cursor points to.
func (model Model) selectedRoute() (route, bool) {
	if model.cursor >= model.itemCount() {
		return route{}, false
	}

	switch model.route.page {
	case pageHome:
		return route{page: pageCategory, slug: model.navigation[model.cursor].Slug}, true
	case pageCategory:
		children := model.category.Children
		if model.cursor < len(children) {
			return route{page: pageCategory, slug: children[model.cursor].Slug}, true
		}
		product := model.category.Products[model.cursor-len(children)]
		return route{page: pageProduct, productID: product.ID.String()}, true
	case pageHistory:
		return routeFromPath(model.records[model.cursor].Path)
	}
	return route{}, false
}
