package api

import "net/url"

// Resource paths of the remote service. Read paths double as cache keys.
const (
	NavigationPath       = "/navigation"
	ViewHistoryPath      = "/view-history"
	ScrapeNavigationPath = "/scraping/navigation"
	scrapeProductsPrefix = "/scraping/products/"
	scrapeDetailPrefix   = "/scraping/product-detail/"
	categoryBySlugPrefix = "/categories/slug/"
	productPrefix        = "/products/"
)

// CategoryPath returns the read path of the category identified by slug.
func CategoryPath(slug string) string {
	return categoryBySlugPrefix + url.PathEscape(slug)
}

// ProductPath returns the read path of the product identified by id.
func ProductPath(id string) string {
	return productPrefix + url.PathEscape(id)
}

// ScrapeCategoryProductsPath returns the path that refreshes a category's products.
func ScrapeCategoryProductsPath(categoryID string) string {
	return scrapeProductsPrefix + url.PathEscape(categoryID)
}

// ScrapeProductDetailPath returns the path that refreshes one product's detail and reviews.
func ScrapeProductDetailPath(productID string) string {
	return scrapeDetailPrefix + url.PathEscape(productID)
}
