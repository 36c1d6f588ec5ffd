package catalog

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders of the listing queries
const (
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortNewest    = "newest"
	SortOldest    = "oldest"
)

// Page sizes of the storefront and the admin panel
const (
	StorefrontPageSize = 10
	AdminPageSize      = 25
	maxVisiblePages    = 5
)

// Query selects, orders and pages the products of a listing
type Query struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
	Sort     string `json:"sort,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// filter returns the products matching search and category. The search is a
// case-insensitive substring match on name and description, and on the
// material if withMaterial is set.
func filter(products []Product, search, category string, withMaterial bool) []Product {
	search = strings.ToLower(strings.TrimSpace(search))
	result := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && category != CategoryAll && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) &&
			!(withMaterial && strings.Contains(strings.ToLower(p.Material), search)) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// sortProducts sorts in place. Names compare with Brazilian Portuguese
// collation. An unknown order falls back to fallback; an empty fallback keeps
// the current order.
func sortProducts(products []Product, order, fallback string) {
	switch order {
	case SortNameAsc, SortNameDesc, SortPriceAsc, SortPriceDesc, SortNewest, SortOldest:
	default:
		order = fallback
	}

	var less func(a, b Product) bool
	switch order {
	case SortNameAsc, SortNameDesc:
		col := collate.New(language.BrazilianPortuguese)
		if order == SortNameAsc {
			less = func(a, b Product) bool { return col.CompareString(a.Name, b.Name) < 0 }
		} else {
			less = func(a, b Product) bool { return col.CompareString(b.Name, a.Name) < 0 }
		}
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b Product) bool { return b.Price < a.Price }
	case SortNewest:
		less = func(a, b Product) bool { return b.CreatedAt.Before(a.CreatedAt) }
	case SortOldest:
		less = func(a, b Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

// Pagination describes the current page of a listing
type Pagination struct {
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
	Total      int    `json:"total"`
	From       int    `json:"from"`
	To         int    `json:"to"`
	Info       string `json:"info"`
	HasPrev    bool   `json:"has_prev"`
	HasNext    bool   `json:"has_next"`
	Pages      []int  `json:"pages,omitempty"`
}

// Paginate computes the pagination for total items. The page is clamped to
// [1, total pages]. Pages lists at most five page numbers around the current
// one and is empty if there is only one page.
func Paginate(total, page, pageSize int) Pagination {
	totalPages := (total + pageSize - 1) / pageSize
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	p := Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
	}
	if total > 0 {
		p.From = (page-1)*pageSize + 1
		p.To = min(page*pageSize, total)
	}
	p.Info = fmt.Sprintf("Mostrando %d-%d de %d", p.From, p.To, total)
	p.HasPrev = page > 1
	p.HasNext = page < totalPages

	if totalPages > 1 {
		start := max(1, page-maxVisiblePages/2)
		end := min(totalPages, start+maxVisiblePages-1)
		if end-start+1 < maxVisiblePages {
			start = max(1, end-maxVisiblePages+1)
		}
		for i := start; i <= end; i++ {
			p.Pages = append(p.Pages, i)
		}
	}
	return p
}

// slice returns the products of the page
func (p Pagination) slice(products []Product) []Product {
	if p.Total == 0 {
		return []Product{}
	}
	return products[p.From-1 : p.To]
}
