package catalog

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/vitrine/core/baas"
)

// Placeholder images for products without images
const (
	PlaceholderCard   = "https://via.placeholder.com/300x200?text=Sem+Imagem"
	PlaceholderDetail = "https://via.placeholder.com/500x500?text=Sem+Imagem"
)

const (
	maxCardColors = 5
	showcaseLimit = 6
	relatedLimit  = 4
)

// ColorChip is a color swatch of a product view
type ColorChip struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Card is the summary of a product in listings
type Card struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Category     string      `json:"category"`
	CategoryName string      `json:"category_name"`
	Price        float64     `json:"price"`
	PriceText    string      `json:"price_text"`
	Image        string      `json:"image"`
	Colors       []ColorChip `json:"colors"`
	MoreColors   int         `json:"more_colors,omitempty"`
	Highlight    bool        `json:"highlight,omitempty"`
}

// SpecItem is a labelled technical detail of a product
type SpecItem struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	FullWidth bool   `json:"full_width,omitempty"`
}

// Detail is the product detail view
type Detail struct {
	Product      Product     `json:"product"`
	CategoryName string      `json:"category_name"`
	PriceText    string      `json:"price_text"`
	MainImage    string      `json:"main_image"`
	Images       []string    `json:"images"`
	Colors       []ColorChip `json:"colors"`
	Specs        []SpecItem  `json:"specs"`
	Related      []Card      `json:"related"`
	Contact      string      `json:"contact"`
}

// Listing is a storefront page of products
type Listing struct {
	Query      Query      `json:"query"`
	Products   []Card     `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// AdminListing is an admin panel page of products
type AdminListing struct {
	Query      Query      `json:"query"`
	Products   []Card     `json:"products"`
	Pagination Pagination `json:"pagination"`
	CountText  string     `json:"count_text"`
}

// PriceText formats a price the way the storefront shows it
func PriceText(price float64) string {
	return fmt.Sprintf("R$ %.2f", price)
}

func colorChips(colors []string, limit int) ([]ColorChip, int) {
	more := 0
	if limit > 0 && len(colors) > limit {
		more = len(colors) - limit
		colors = colors[:limit]
	}
	chips := make([]ColorChip, 0, len(colors))
	for _, c := range colors {
		chips = append(chips, ColorChip{Name: c, Hex: ColorHex(c)})
	}
	return chips, more
}

func imageURL(blobs baas.BlobStore, key string) string {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return blobs.URL(key)
}

func card(blobs baas.BlobStore, p Product) Card {
	c := Card{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		CategoryName: CategoryName(p.Category),
		Price:        p.Price,
		PriceText:    PriceText(p.Price),
		Image:        PlaceholderCard,
	}
	if len(p.Images) > 0 {
		c.Image = imageURL(blobs, p.Images[0])
	}
	c.Colors, c.MoreColors = colorChips(p.Colors, maxCardColors)
	return c
}

func cards(blobs baas.BlobStore, products []Product) []Card {
	result := make([]Card, 0, len(products))
	for _, p := range products {
		result = append(result, card(blobs, p))
	}
	return result
}

// specs returns the spec items of the product; empty fields are left out
func specs(p Product) []SpecItem {
	items := []SpecItem{}
	if p.Material != "" {
		items = append(items, SpecItem{Label: "Material", Value: p.Material})
	}
	if p.Dimensions != "" {
		items = append(items, SpecItem{Label: "Dimensões", Value: p.Dimensions})
	}
	if p.Weight != nil && *p.Weight != 0 {
		items = append(items, SpecItem{Label: "Peso", Value: formatNumber(*p.Weight) + "g"})
	}
	if p.PrintTime != "" {
		items = append(items, SpecItem{Label: "Tempo de Impressão", Value: p.PrintTime})
	}
	if p.Specifications != "" {
		items = append(items, SpecItem{Label: "Detalhes", Value: p.Specifications, FullWidth: true})
	}
	return items
}

// related returns up to four other products of the same category, in list order
func related(products []Product, p Product) []Product {
	result := []Product{}
	for _, other := range products {
		if other.Category == p.Category && other.ID != p.ID {
			result = append(result, other)
			if len(result) == relatedLimit {
				break
			}
		}
	}
	return result
}

func detail(blobs baas.BlobStore, contact Contact, p Product, all []Product) Detail {
	d := Detail{
		Product:      p,
		CategoryName: CategoryName(p.Category),
		PriceText:    PriceText(p.Price),
		MainImage:    PlaceholderDetail,
		Images:       make([]string, 0, len(p.Images)),
		Specs:        specs(p),
		Related:      cards(blobs, related(all, p)),
		Contact:      contact.ProductLink(p.Name),
	}
	for _, key := range p.Images {
		d.Images = append(d.Images, imageURL(blobs, key))
	}
	if len(d.Images) > 0 {
		d.MainImage = d.Images[0]
	}
	d.Colors, _ = colorChips(p.Colors, 0)
	return d
}
