package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// maxReviews is the number of reviews shown on a product page.
const maxReviews = 5

// View implements tea.Model.
func (model Model) View() string {
	sections := []string{model.styles.header.Render(model.title()), ""}
	sections = append(sections, model.body())
	sections = append(sections, "", model.footer())

	view := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if model.width > 0 {
		view = lipgloss.NewStyle().MaxWidth(model.width).Render(view)
	}
	return view
}

func (model Model) title() string {
	switch model.route.page {
	case pageCategory:
		if model.category != nil {
			return "explorer › " + model.category.Title
		}
		return "explorer › " + model.route.slug
	case pageProduct:
		if model.product != nil {
			return "explorer › " + model.product.Title
		}
		return "explorer › product " + model.route.productID
	case pageHistory:
		return "explorer › recently viewed"
	}
	return "explorer › categories"
}

func (model Model) body() string {
	if model.route.page == pageHistory {
		return model.historyBody()
	}

	snapshot := model.snapshot
	if !snapshot.HasData() {
		if snapshot.Err != nil {
			return lipgloss.JoinVertical(lipgloss.Left,
				model.styles.err.Render(model.failureMessage()),
				model.styles.faint.Render(snapshot.Err.Error()),
				"",
				model.styles.help.Render("press R to retry"),
			)
		}
		return model.styles.faint.Render("Loading…")
	}

	var body string
	switch model.route.page {
	case pageHome:
		body = model.homeBody()
	case pageCategory:
		body = model.categoryBody()
	case pageProduct:
		body = model.productBody()
	}

	if snapshot.Err != nil {
		body += "\n\n" + model.styles.err.Render("showing cached data: "+snapshot.Err.Error())
	}
	return body
}

func (model Model) failureMessage() string {
	switch model.route.page {
	case pageCategory:
		return "Failed to load category"
	case pageProduct:
		return "Failed to load product"
	}
	return "Failed to load categories"
}

func (model Model) homeBody() string {
	if len(model.navigation) == 0 {
		return model.styles.faint.Render("No categories yet. Press r to load categories.")
	}

	lines := make([]string, 0, len(model.navigation))
	for i, item := range model.navigation {
		line := item.Title
		if item.LastScrapedAt != nil {
			line += model.styles.faint.Render(" · updated " + item.LastScrapedAt.Format("2006-01-02"))
		}
		lines = append(lines, model.row(i, line))
	}
	return strings.Join(lines, "\n")
}

func (model Model) categoryBody() string {
	category := model.category
	lines := []string{model.styles.faint.Render(fmt.Sprintf("%d products", category.ProductCount))}

	if len(category.Children) > 0 {
		lines = append(lines, "", model.styles.header.Render("Subcategories"))
		for i, child := range category.Children {
			lines = append(lines, model.row(i, fmt.Sprintf("%s (%d)", child.Title, child.ProductCount)))
		}
	}

	lines = append(lines, "", model.styles.header.Render("Products"))
	if len(category.Products) == 0 {
		lines = append(lines, model.styles.faint.Render("No products yet. Press r to refresh products."))
	}
	for i, product := range category.Products {
		line := product.Title
		if product.Author != "" {
			line += model.styles.faint.Render(" by " + product.Author)
		}
		if price := formatPrice(product.Price, product.Currency); price != "" {
			line += "  " + model.styles.accent.Render(price)
		}
		lines = append(lines, model.row(len(category.Children)+i, line))
	}
	return strings.Join(lines, "\n")
}

func (model Model) productBody() string {
	product := model.product
	var lines []string

	if product.Author != "" {
		lines = append(lines, "by "+product.Author)
	}
	if price := formatPrice(product.Price, product.Currency); price != "" {
		lines = append(lines, model.styles.accent.Render(price))
	}

	detail := product.Detail
	if detail == nil {
		lines = append(lines, "", model.styles.faint.Render("Full details have not been loaded yet."))
		return strings.Join(lines, "\n")
	}

	if rating := detail.Rating(); rating > 0 {
		lines = append(lines, model.styles.accent.Render(fmt.Sprintf("%s %.1f (%d reviews)", stars(rating), rating, detail.ReviewsCount)))
	}
	if detail.Publisher != "" {
		lines = append(lines, "Publisher: "+detail.Publisher)
	}
	if detail.PublicationDate != nil {
		lines = append(lines, "Published: "+detail.PublicationDate.Format("2006-01-02"))
	}
	if detail.ISBN != "" {
		lines = append(lines, "ISBN: "+detail.ISBN)
	}
	if detail.Description != "" {
		lines = append(lines, "", model.styles.normal.Render(detail.Description))
	}

	if len(product.Reviews) > 0 {
		lines = append(lines, "", model.styles.header.Render("Reviews"))
		for _, review := range product.Reviews[:min(len(product.Reviews), maxReviews)] {
			author := review.Author
			if author == "" {
				author = "Anonymous"
			}
			lines = append(lines, fmt.Sprintf("%s %s", model.styles.accent.Render(stars(float64(review.Rating))), author))
			if review.Text != "" {
				lines = append(lines, model.styles.faint.Render("  "+review.Text))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (model Model) historyBody() string {
	if len(model.records) == 0 {
		return model.styles.faint.Render("Nothing viewed yet.")
	}

	lines := make([]string, 0, len(model.records))
	for i, record := range model.records {
		line := record.Path
		if summary := summarize(record.Attributes()); summary != "" {
			line += model.styles.faint.Render("  " + summary)
		}
		if !record.OccurredAt.IsZero() {
			line = model.styles.faint.Render(record.OccurredAt.Format("15:04:05")+"  ") + line
		}
		lines = append(lines, model.row(i, line))
	}
	return strings.Join(lines, "\n")
}

func (model Model) footer() string {
	help := []string{
		model.keys.Up.Help().Key + "/" + model.keys.Down.Help().Key + " move",
		model.keys.Open.Help().Key + " open",
		model.keys.Back.Help().Key + " back",
		model.keys.History.Help().Key + " history",
	}

	footer := model.styles.help.Render(strings.Join(help, " · "))
	if label := model.refreshLabel(); label != "" {
		footer += model.styles.help.Render(" · ") + label
	}
	footer += model.styles.help.Render(" · " + model.keys.Quit.Help().Key + " quit")

	if model.refreshErr != nil {
		footer = model.styles.err.Render("refresh failed: "+model.refreshErr.Error()) + "\n" + footer
	}
	return footer
}

// refreshLabel describes the page's refresh action, rendered disabled while it runs.
func (model Model) refreshLabel() string {
	var action string
	switch model.route.page {
	case pageHome:
		action = "refresh categories"
		if model.snapshot.HasData() && len(model.navigation) == 0 {
			action = "load categories"
		}
	case pageCategory:
		if model.category == nil {
			return ""
		}
		action = "refresh products"
	case pageProduct:
		action = "refresh details"
		if model.product != nil && model.product.Detail == nil {
			action = "load full details"
		}
	default:
		return ""
	}

	if model.refreshing[model.route.key()] {
		return model.styles.disabled.Render(model.keys.Refresh.Help().Key + " " + action + "…")
	}
	return model.styles.help.Render(model.keys.Refresh.Help().Key + " " + action)
}

func (model Model) row(index int, line string) string {
	if index == model.cursor {
		return model.styles.selected.Render("› " + line)
	}
	return "  " + line
}

func formatPrice(price json.Number, currency string) string {
	value, err := price.Float64()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%s %.2f", currency, value))
}

func stars(rating float64) string {
	filled := min(max(int(rating+0.5), 0), 5)
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

// summarize renders record attributes as sorted key=value pairs.
func summarize(attributes map[string]any) string {
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, attributes[key]))
	}
	return strings.Join(pairs, " ")
}
