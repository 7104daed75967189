package refresh

import (
	"context"
	"errors"
	"sync"

	"github.com/tfkr-ae/explorer/api"
)

// Scraper is the backend that refreshes catalog data.
type Scraper interface {
	ScrapeNavigation(ctx context.Context) error
	ScrapeCategoryProducts(ctx context.Context, categoryID string) error
	ScrapeProductDetail(ctx context.Context, productID string) error
}

var errNoScraper = errors.New("refresh needs a scraper")

// Navigation creates the coordinator of the top-level category list.
func Navigation(scraper Scraper, cache Invalidator, options ...func(*Coordinator) error) (*Coordinator, error) {
	if scraper == nil {
		return nil, errNoScraper
	}
	return New(api.NavigationPath, scraper.ScrapeNavigation, cache, options...)
}

// Category creates the coordinator of one category's products.
// The mutation is addressed by the category id, the cache by its slug.
func Category(scraper Scraper, cache Invalidator, categoryID, slug string, options ...func(*Coordinator) error) (*Coordinator, error) {
	if scraper == nil {
		return nil, errNoScraper
	}
	return New(api.CategoryPath(slug), func(ctx context.Context) error {
		return scraper.ScrapeCategoryProducts(ctx, categoryID)
	}, cache, options...)
}

// Product creates the coordinator of one product's detail and reviews.
func Product(scraper Scraper, cache Invalidator, productID string, options ...func(*Coordinator) error) (*Coordinator, error) {
	if scraper == nil {
		return nil, errNoScraper
	}
	return New(api.ProductPath(productID), func(ctx context.Context) error {
		return scraper.ScrapeProductDetail(ctx, productID)
	}, cache, options...)
}

// Registry hands out one coordinator per resource for the lifetime of the process,
// so every view of a resource shares its in-flight state.
type Registry struct {
	scraper Scraper
	cache   Invalidator
	options []func(*Coordinator) error

	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

// NewRegistry creates a Registry. options are applied to every coordinator it creates.
func NewRegistry(scraper Scraper, cache Invalidator, options ...func(*Coordinator) error) (*Registry, error) {
	if scraper == nil || cache == nil {
		return nil, errors.New("refresh registry needs a scraper and a cache")
	}
	return &Registry{
		scraper:      scraper,
		cache:        cache,
		options:      options,
		coordinators: make(map[string]*Coordinator),
	}, nil
}

// Navigation returns the coordinator of the top-level category list.
func (registry *Registry) Navigation() (*Coordinator, error) {
	return registry.get(api.NavigationPath, func() (*Coordinator, error) {
		return Navigation(registry.scraper, registry.cache, registry.options...)
	})
}

// Category returns the coordinator of the category identified by categoryID and slug.
func (registry *Registry) Category(categoryID, slug string) (*Coordinator, error) {
	return registry.get(api.CategoryPath(slug), func() (*Coordinator, error) {
		return Category(registry.scraper, registry.cache, categoryID, slug, registry.options...)
	})
}

// Product returns the coordinator of the product identified by productID.
func (registry *Registry) Product(productID string) (*Coordinator, error) {
	return registry.get(api.ProductPath(productID), func() (*Coordinator, error) {
		return Product(registry.scraper, registry.cache, productID, registry.options...)
	})
}

func (registry *Registry) get(key string, create func() (*Coordinator, error)) (*Coordinator, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if coordinator, ok := registry.coordinators[key]; ok {
		return coordinator, nil
	}

	coordinator, err := create()
	if err != nil {
		return nil, err
	}
	registry.coordinators[key] = coordinator
	return coordinator, nil
}
