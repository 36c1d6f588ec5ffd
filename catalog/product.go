// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package catalog implements the 3D-printing product catalog

Products are stored as JSON documents in a baas.DocumentStore, their images in a
baas.BlobStore. The Service offers the storefront views (showcase, browse,
detail) and the admin operations (list, save, delete, uploads, stats). All
filtering, sorting and pagination happens on the full product list, which is
cached until the next write.
*/
package catalog

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/vitrine/core/baas"
)

// CollectionProducts is the name of the document collection holding the products
const CollectionProducts = "products"

// Product is a catalog product
type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	Category       string    `json:"category"`
	Dimensions     string    `json:"dimensions,omitempty"`
	Material       string    `json:"material"`
	Colors         []string  `json:"colors"`
	Weight         *float64  `json:"weight,omitempty"`
	PrintTime      string    `json:"print_time"`
	Specifications string    `json:"specifications,omitempty"`
	Images         []string  `json:"images"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// productData is the stored document body. ID and timestamps live in the document.
type productData struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	Category       string   `json:"category"`
	Dimensions     string   `json:"dimensions,omitempty"`
	Material       string   `json:"material"`
	Colors         []string `json:"colors"`
	Weight         *float64 `json:"weight,omitempty"`
	PrintTime      string   `json:"print_time"`
	Specifications string   `json:"specifications,omitempty"`
	Images         []string `json:"images"`
}

func productFromDocument(doc baas.Document) (Product, error) {
	var data productData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return Product{}, fmt.Errorf("cannot decode product %s: %w", doc.ID, err)
	}
	if data.Colors == nil {
		data.Colors = []string{}
	}
	if data.Images == nil {
		data.Images = []string{}
	}
	return Product{
		ID:             doc.ID,
		Name:           data.Name,
		Description:    data.Description,
		Price:          data.Price,
		Category:       data.Category,
		Dimensions:     data.Dimensions,
		Material:       data.Material,
		Colors:         data.Colors,
		Weight:         data.Weight,
		PrintTime:      data.PrintTime,
		Specifications: data.Specifications,
		Images:         data.Images,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}

func (p Product) document() (baas.Document, error) {
	data, err := json.Marshal(productData{
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		Category:       p.Category,
		Dimensions:     p.Dimensions,
		Material:       p.Material,
		Colors:         p.Colors,
		Weight:         p.Weight,
		PrintTime:      p.PrintTime,
		Specifications: p.Specifications,
		Images:         p.Images,
	})
	if err != nil {
		return baas.Document{}, err
	}
	return baas.Document{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Data:      data,
	}, nil
}

// Category is a product category with its display name
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Categories are the fixed product categories in display order
var Categories = []Category{
	{"decoracao", "Decoração"},
	{"utilitarios", "Utilitários"},
	{"prototipos", "Protótipos"},
	{"joias", "Jóias e Acessórios"},
	{"brinquedos", "Brinquedos"},
	{"ferramentas", "Ferramentas"},
	{"automotivo", "Automotivo"},
	{"medico", "Médico e Odontológico"},
	{"arquitetura", "Arquitetura e Maquetes"},
	{"educacao", "Educação"},
	{"moda", "Moda"},
	{"esportes", "Esportes"},
	{"personalizado", "Personalizado"},
}

// CategoryAll selects every category in listing queries
const CategoryAll = "all"

// IsCategory returns true if id is one of the fixed categories
func IsCategory(id string) bool {
	for _, c := range Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CategoryName returns the display name of a category. Unknown ids display as themselves.
func CategoryName(id string) string {
	for _, c := range Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}
