package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name              string
		total, page, size int
		wantPage          int
		wantPages         []int
		wantInfo          string
	}{
		{"empty", 0, 1, 10, 1, nil, "Mostrando 0-0 de 0"},
		{"single page", 7, 1, 10, 1, nil, "Mostrando 1-7 de 7"},
		{"first of many", 95, 1, 10, 1, []int{1, 2, 3, 4, 5}, "Mostrando 1-10 de 95"},
		{"centred", 95, 5, 10, 5, []int{3, 4, 5, 6, 7}, "Mostrando 41-50 de 95"},
		{"last", 95, 10, 10, 10, []int{6, 7, 8, 9, 10}, "Mostrando 91-95 de 95"},
		{"clamped high", 30, 9, 25, 2, []int{1, 2}, "Mostrando 26-30 de 30"},
		{"clamped low", 30, -3, 25, 1, []int{1, 2}, "Mostrando 1-25 de 30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(tt.total, tt.page, tt.size)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPages, p.Pages)
			assert.Equal(t, tt.wantInfo, p.Info)
			assert.Equal(t, p.Page > 1, p.HasPrev)
			assert.Equal(t, p.Page < p.TotalPages, p.HasNext)
		})
	}
}

func TestPaginationSlice(t *testing.T) {
	products := make([]Product, 12)
	for i := range products {
		products[i].ID = string(rune('a' + i))
	}
	p := Paginate(len(products), 2, 10)
	page := p.slice(products)
	if assert.Len(t, page, 2) {
		assert.Equal(t, "k", page[0].ID)
	}
	assert.Empty(t, Paginate(0, 1, 10).slice(nil))
}

func names(products []Product) []string {
	result := []string{}
	for _, p := range products {
		result = append(result, p.Name)
	}
	return result
}

func TestFilter(t *testing.T) {
	products := []Product{
		{Name: "Vaso", Description: "Decorativo", Material: "PLA", Category: "decoracao"},
		{Name: "Chaveiro", Description: "Pequeno brinde", Material: "PETG", Category: "utilitarios"},
		{Name: "Engrenagem", Description: "Peça de reposição em pla", Material: "ABS", Category: "ferramentas"},
	}
	assert.Equal(t, []string{"Vaso", "Engrenagem"}, names(filter(products, "pla", CategoryAll, true)))
	assert.Equal(t, []string{"Engrenagem"}, names(filter(products, "pla", CategoryAll, false)))
	assert.Equal(t, []string{"Chaveiro"}, names(filter(products, "PETG", "", true)))
	assert.Equal(t, []string{"Vaso"}, names(filter(products, "", "decoracao", true)))
	assert.Empty(t, filter(products, "petg", "decoracao", true))
}

func TestSortProducts(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	products := func() []Product {
		return []Product{
			{Name: "Bola", Price: 10, CreatedAt: base.Add(2 * time.Hour)},
			{Name: "avião", Price: 30, CreatedAt: base},
			{Name: "Árvore", Price: 20, CreatedAt: base.Add(3 * time.Hour)},
			{Name: "Abacate", Price: 5, CreatedAt: base.Add(time.Hour)},
		}
	}
	tests := []struct {
		order, fallback string
		want            []string
	}{
		{SortNameAsc, "", []string{"Abacate", "Árvore", "avião", "Bola"}},
		{SortNameDesc, "", []string{"Bola", "avião", "Árvore", "Abacate"}},
		{SortPriceAsc, "", []string{"Abacate", "Bola", "Árvore", "avião"}},
		{SortPriceDesc, "", []string{"avião", "Árvore", "Bola", "Abacate"}},
		{SortNewest, "", []string{"Árvore", "Bola", "Abacate", "avião"}},
		{SortOldest, "", []string{"avião", "Abacate", "Bola", "Árvore"}},
		{"bogus", SortNewest, []string{"Árvore", "Bola", "Abacate", "avião"}},
		{"bogus", "", []string{"Bola", "avião", "Árvore", "Abacate"}},
	}
	for _, tt := range tests {
		p := products()
		sortProducts(p, tt.order, tt.fallback)
		assert.Equal(t, tt.want, names(p), tt.order)
	}
}
