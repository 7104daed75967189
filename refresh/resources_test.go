package refresh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tfkr-ae/explorer/api"
	"github.com/tfkr-ae/explorer/cache"
	"github.com/tfkr-ae/explorer/domain"
)

// recordingScraper records which backend refresh was requested.
type recordingScraper struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingScraper) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return nil
}

func (s *recordingScraper) ScrapeNavigation(ctx context.Context) error {
	return s.record("navigation")
}

func (s *recordingScraper) ScrapeCategoryProducts(ctx context.Context, categoryID string) error {
	return s.record("products " + categoryID)
}

func (s *recordingScraper) ScrapeProductDetail(ctx context.Context, productID string) error {
	return s.record("detail " + productID)
}

func TestResources(t *testing.T) {
	tests := []struct {
		name     string
		create   func(Scraper, Invalidator) (*Coordinator, error)
		wantCall string
		wantKey  string
	}{
		{
			name:     "should refresh the navigation list",
			create:   func(s Scraper, c Invalidator) (*Coordinator, error) { return Navigation(s, c) },
			wantCall: "navigation",
			wantKey:  "/navigation",
		},
		{
			name: "should refresh a category by id and invalidate it by slug",
			create: func(s Scraper, c Invalidator) (*Coordinator, error) {
				return Category(s, c, "7", "fiction")
			},
			wantCall: "products 7",
			wantKey:  "/categories/slug/fiction",
		},
		{
			name:     "should refresh a product detail",
			create:   func(s Scraper, c Invalidator) (*Coordinator, error) { return Product(s, c, "42") },
			wantCall: "detail 42",
			wantKey:  "/products/42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scraper := &recordingScraper{}
			invalidator := &recordingCache{}

			coordinator, err := tt.create(scraper, invalidator)
			if err != nil {
				t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
			}

			if err := coordinator.Refresh(context.Background()); err != nil {
				t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
			}

			if len(scraper.calls) != 1 || scraper.calls[0] != tt.wantCall {
				t.Fatalf("\nwanted:\n[%s]\ngot:\n%v", tt.wantCall, scraper.calls)
			}
			if got := invalidator.invalidated(); len(got) != 1 || got[0] != tt.wantKey {
				t.Fatalf("\nwanted:\n[%s]\ngot:\n%v", tt.wantKey, got)
			}
			if coordinator.Key() != tt.wantKey {
				t.Fatalf("\nwanted:\n%s\ngot:\n%s", tt.wantKey, coordinator.Key())
			}
		})
	}

	t.Run("should reject a nil scraper", func(t *testing.T) {
		if _, err := Navigation(nil, &recordingCache{}); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("should hand out one coordinator per resource", func(t *testing.T) {
		registry, err := NewRegistry(&recordingScraper{}, &recordingCache{})
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		first, _ := registry.Product("42")
		second, _ := registry.Product("42")
		other, _ := registry.Product("43")

		if first != second {
			t.Fatalf("\nwanted:\nthe same coordinator\ngot:\n%p and %p", first, second)
		}
		if first == other {
			t.Fatalf("\nwanted:\ndifferent coordinators\ngot:\nthe same")
		}

		navigation, _ := registry.Navigation()
		if again, _ := registry.Navigation(); again != navigation {
			t.Fatalf("\nwanted:\nthe same coordinator\ngot:\n%p and %p", navigation, again)
		}

		category, _ := registry.Category("7", "fiction")
		if category.Key() != "/categories/slug/fiction" {
			t.Fatalf("\nwanted:\n/categories/slug/fiction\ngot:\n%s", category.Key())
		}
	})

	t.Run("should pass its options to every coordinator", func(t *testing.T) {
		registry, _ := NewRegistry(&recordingScraper{}, &recordingCache{}, WithTimeout(0))
		if _, err := registry.Navigation(); err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestProductRefresh_EndToEnd(t *testing.T) {
	t.Run("should post the scrape and then refetch the product", func(t *testing.T) {
		var mu sync.Mutex
		var requests []string
		scraped := false

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			requests = append(requests, r.Method+" "+r.URL.Path)

			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/scraping/product-detail/42":
				scraped = true
				w.WriteHeader(http.StatusCreated)
			case r.Method == http.MethodGet && r.URL.Path == "/products/42":
				if scraped {
					w.Write([]byte(`{"id":42,"title":"Dune","sourceUrl":"x","detail":{"description":"Spice"}}`))
					return
				}
				w.Write([]byte(`{"id":42,"title":"Dune","sourceUrl":"x"}`))
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		client, err := api.New(server.URL)
		if err != nil {
			t.Fatalf("creating client: %v", err)
		}

		store, err := cache.New(client)
		if err != nil {
			t.Fatalf("creating cache: %v", err)
		}
		defer store.Close()

		sub := store.Subscribe(api.ProductPath("42"))
		defer sub.Close()

		readProduct := func(match func(domain.Product) bool) domain.Product {
			t.Helper()
			timeout := time.After(2 * time.Second)
			for {
				select {
				case snapshot := <-sub.Updates():
					if snapshot.IsValidating || !snapshot.HasData() {
						continue
					}
					var product domain.Product
					if err := snapshot.Decode(&product); err != nil {
						t.Fatalf("decoding product: %v", err)
					}
					if match(product) {
						return product
					}
				case <-timeout:
					t.Fatalf("\nwanted:\na matching product\ngot:\nnone")
				}
			}
		}

		readProduct(func(p domain.Product) bool { return p.Detail == nil })

		coordinator, err := Product(client, store, "42")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := coordinator.Refresh(context.Background()); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got := readProduct(func(p domain.Product) bool { return p.Detail != nil })
		if got.Detail.Description != "Spice" {
			t.Fatalf("\nwanted:\nSpice\ngot:\n%s", got.Detail.Description)
		}

		mu.Lock()
		defer mu.Unlock()
		want := []string{"GET /products/42", "POST /scraping/product-detail/42", "GET /products/42"}
		if len(requests) != len(want) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, requests)
		}
		for i := range want {
			if requests[i] != want[i] {
				t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, requests)
			}
		}
	})
}
