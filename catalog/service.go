// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package catalog

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/vitrine/core"
	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/cache"
	"github.com/relabs-tech/vitrine/core/events"
	"github.com/relabs-tech/vitrine/core/logger"
	"github.com/relabs-tech/vitrine/core/metrics"
	"github.com/relabs-tech/vitrine/core/schema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// ProductSchemaID is the JSON schema product forms are checked against
const ProductSchemaID = "https://vitrine.local/schemas/product.json"

// ImagePrefix is the blob key prefix of all product images
const ImagePrefix = "products/"

const (
	productsCacheKey   = "catalog:products"
	generationCacheKey = "catalog:products:generation"
	defaultCacheTTL  = 5 * time.Minute
	uploadLimit      = 4
)

// Config configures the catalog Service
type Config struct {
	// WhatsAppPhone receives quote requests, defaults to DefaultWhatsAppPhone
	WhatsAppPhone string
	// Cache holds the product list between writes, defaults to an in-process cache
	Cache    cache.Cache
	CacheTTL time.Duration
	// Publisher is notified about product writes, defaults to the log
	Publisher events.Publisher
	Now       func() time.Time
}

// Service is the product catalog
type Service struct {
	products  baas.Collection
	blobs     baas.BlobStore
	cache     cache.Cache
	cacheTTL  time.Duration
	publisher events.Publisher
	validator *schema.Validator
	contact   Contact
	now       func() time.Time
}

// NewService returns a catalog on the products collection of store, with images in blobs
func NewService(store baas.DocumentStore, blobs baas.BlobStore, config Config) (*Service, error) {
	validator, err := schema.NewValidatorFromFS(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("cannot load product schema: %w", err)
	}
	s := &Service{
		products:  store.Collection(CollectionProducts),
		blobs:     blobs,
		cache:     config.Cache,
		cacheTTL:  config.CacheTTL,
		publisher: config.Publisher,
		validator: validator,
		contact:   Contact{Phone: config.WhatsAppPhone},
		now:       config.Now,
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.cacheTTL == 0 {
		s.cacheTTL = defaultCacheTTL
	}
	if s.publisher == nil {
		s.publisher = events.Log{}
	}
	if s.contact.Phone == "" {
		s.contact.Phone = DefaultWhatsAppPhone
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Contact returns the contact links of the storefront
func (s *Service) Contact() Links {
	return s.contact.Links()
}

// cachedProducts is the cached product list. It is only valid as long as
// Generation is the current generation.
type cachedProducts struct {
	Generation string    `json:"generation"`
	Products   []Product `json:"products"`
}

// generation returns the current generation of the product list, every
// write starts a new one
func (s *Service) generation(ctx context.Context) (string, error) {
	var generation string
	found, err := s.cache.Get(ctx, generationCacheKey, &generation)
	if err != nil {
		return "", err
	}
	if found && generation != "" {
		return generation, nil
	}
	generation = uuid.New().String()
	return generation, s.cache.Set(ctx, generationCacheKey, generation, 0)
}

// List returns all products, newest first
func (s *Service) List(ctx context.Context) ([]Product, error) {
	rlog := logger.FromContext(ctx)

	// the generation is taken before the store is read. A write in between
	// starts a new generation, so the list cached below is never served.
	generation, err := s.generation(ctx)
	if err != nil {
		rlog.WithError(err).Warnln("cannot read product cache generation")
	}
	if generation != "" {
		var cached cachedProducts
		found, err := s.cache.Get(ctx, productsCacheKey, &cached)
		if err != nil {
			rlog.WithError(err).Warnln("cannot read product cache")
		}
		hit := found && err == nil && cached.Generation == generation
		metrics.RecordCacheLookup(hit)
		if hit {
			return cached.Products, nil
		}
	} else {
		metrics.RecordCacheLookup(false)
	}

	docs, err := s.products.List(ctx, baas.OrderCreatedDesc)
	if err != nil {
		return nil, fmt.Errorf("cannot list products: %w", err)
	}
	products := make([]Product, 0, len(docs))
	for _, doc := range docs {
		p, err := productFromDocument(doc)
		if err != nil {
			rlog.WithError(err).Errorf("Error 3001: skipping product %s", doc.ID)
			continue
		}
		products = append(products, p)
	}
	if generation != "" {
		cached := cachedProducts{Generation: generation, Products: products}
		if err := s.cache.Set(ctx, productsCacheKey, cached, s.cacheTTL); err != nil {
			rlog.WithError(err).Warnln("cannot write product cache")
		}
	}
	return products, nil
}

// Get returns a single product. Unknown ids return baas.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	doc, err := s.products.Read(ctx, id)
	if err != nil {
		return Product{}, err
	}
	return productFromDocument(doc)
}

// Showcase returns the cards of the six newest products, optionally of a single category
func (s *Service) Showcase(ctx context.Context, category string) ([]Card, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	products = filter(products, "", category, false)
	sortProducts(products, SortNewest, SortNewest)
	if len(products) > showcaseLimit {
		products = products[:showcaseLimit]
	}
	return cards(s.blobs, products), nil
}

// Browse returns a storefront page. The search includes the material, the
// default order is newest first.
func (s *Service) Browse(ctx context.Context, q Query) (Listing, error) {
	products, err := s.List(ctx)
	if err != nil {
		return Listing{}, err
	}
	products = filter(products, q.Search, q.Category, true)
	sortProducts(products, q.Sort, SortNewest)
	pagination := Paginate(len(products), q.Page, StorefrontPageSize)
	q.Page = pagination.Page
	return Listing{
		Query:      q,
		Products:   cards(s.blobs, pagination.slice(products)),
		Pagination: pagination,
	}, nil
}

// Detail returns the detail view of a product with its related products
func (s *Service) Detail(ctx context.Context, id string) (Detail, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	all, err := s.List(ctx)
	if err != nil {
		return Detail{}, err
	}
	return detail(s.blobs, s.contact, p, all), nil
}

// AdminList returns an admin panel page. The search covers name and
// description only; without a valid sort the store order is kept.
func (s *Service) AdminList(ctx context.Context, q Query) (AdminListing, error) {
	products, err := s.List(ctx)
	if err != nil {
		return AdminListing{}, err
	}
	products = filter(products, q.Search, q.Category, false)
	sortProducts(products, q.Sort, "")
	pagination := Paginate(len(products), q.Page, AdminPageSize)
	q.Page = pagination.Page

	search := strings.ToLower(strings.TrimSpace(q.Search))
	page := pagination.slice(products)
	result := make([]Card, 0, len(page))
	for _, p := range page {
		c := card(s.blobs, p)
		c.Highlight = search != "" && strings.Contains(strings.ToLower(p.Name), search)
		result = append(result, c)
	}
	return AdminListing{
		Query:      q,
		Products:   result,
		Pagination: pagination,
		CountText:  fmt.Sprintf("%d produtos encontrados", len(products)),
	}, nil
}

// ParseInput decodes a posted product form. The document must match the
// product schema; a mismatch returns a *schema.Error.
func (s *Service) ParseInput(data []byte) (ProductInput, error) {
	if err := s.validator.ValidateBytes(data, ProductSchemaID); err != nil {
		return ProductInput{}, err
	}
	var in ProductInput
	if err := json.Unmarshal(data, &in); err != nil {
		return ProductInput{}, err
	}
	return in, nil
}

// Save creates a product if id is empty, otherwise it updates the product
// with that id. The creation time of existing products is kept. An invalid
// form returns a *ValidationError.
func (s *Service) Save(ctx context.Context, id string, in ProductInput) (Product, error) {
	validation := in.Validate()
	if !validation.Valid {
		return Product{}, &ValidationError{Messages: validation.Errors}
	}
	p := in.product(validation.Dimensions)
	now := s.now().UTC()

	operation := core.OperationCreate
	var doc baas.Document
	var err error
	if id == "" {
		p.CreatedAt, p.UpdatedAt = now, now
		if doc, err = p.document(); err != nil {
			return Product{}, err
		}
		doc, err = s.products.Create(ctx, doc)
	} else {
		operation = core.OperationUpdate
		existing, rerr := s.Get(ctx, id)
		if rerr != nil {
			return Product{}, rerr
		}
		p.ID = id
		p.CreatedAt, p.UpdatedAt = existing.CreatedAt, now
		if doc, err = p.document(); err != nil {
			return Product{}, err
		}
		doc, err = s.products.Update(ctx, doc)
	}
	if err != nil {
		return Product{}, err
	}
	if p, err = productFromDocument(doc); err != nil {
		return Product{}, err
	}
	s.changed(ctx, operation, p.ID, p)
	return p, nil
}

// Delete removes a product. Its images are deleted first, in parallel and on a
// best effort basis; failures are logged and left to the sweep.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rlog := logger.FromContext(ctx)
	var g errgroup.Group
	g.SetLimit(uploadLimit)
	for _, key := range p.Images {
		g.Go(func() error {
			if err := s.blobs.Delete(ctx, key); err != nil {
				rlog.WithError(err).Warnf("cannot delete image %s of product %s", key, id)
			}
			return nil
		})
	}
	g.Wait()

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, core.OperationDelete, id, nil)
	return nil
}

// changed invalidates the product list and publishes the change
func (s *Service) changed(ctx context.Context, operation core.Operation, id string, payload interface{}) {
	rlog := logger.FromContext(ctx)
	if err := s.cache.Set(ctx, generationCacheKey, uuid.New().String(), 0); err != nil {
		rlog.WithError(err).Errorf("Error 3002: cannot invalidate product cache")
	}
	if err := s.cache.Delete(ctx, productsCacheKey); err != nil {
		rlog.WithError(err).Warnln("cannot delete stale product list")
	}
	metrics.RecordProductWrite(string(operation))
	n := events.NewNotification(ctx, CollectionProducts, operation, id, payload)
	if err := s.publisher.Publish(ctx, n); err != nil {
		rlog.WithError(err).Errorf("Error 3003: cannot publish %s of product %s", operation, id)
	}
}

// Image is a stored product image
type Image struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

var validFolder = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// UploadImages stores images for a product which already has existing
// images. Products which are not saved yet pass an empty productID; their
// images go to a temporary new_{millis} folder. All files are validated
// before anything is stored, an invalid batch returns a *ValidationError.
func (s *Service) UploadImages(ctx context.Context, productID string, existing int, uploads []Upload) ([]Image, error) {
	if errs := ValidateUploads(existing, uploads); len(errs) > 0 {
		return nil, &ValidationError{Messages: errs}
	}
	millis := s.now().UnixMilli()
	folder := productID
	if folder == "" {
		folder = "new_" + strconv.FormatInt(millis, 10)
	} else if !validFolder.MatchString(folder) {
		return nil, &ValidationError{Messages: []string{"Produto inválido: " + productID}}
	}

	images := make([]Image, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadLimit)
	for i, u := range uploads {
		key := fmt.Sprintf("%s%s/%d_%s", ImagePrefix, folder, millis+int64(i), safeFilename(u.Name))
		g.Go(func() error {
			if err := s.blobs.Upload(gctx, key, u.ContentType, bytes.NewReader(u.Data)); err != nil {
				return fmt.Errorf("cannot upload %s: %w", u.Name, err)
			}
			metrics.RecordUpload(u.Size)
			images[i] = Image{Key: key, URL: s.blobs.URL(key)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeFilename reduces a client file name to a single safe key segment
func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "image"
	}
	return name
}

// DeleteImage removes a product image. Keys outside the product images return baas.ErrNotFound.
func (s *Service) DeleteImage(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, ImagePrefix) {
		return baas.ErrNotFound
	}
	return s.blobs.Delete(ctx, key)
}

// Stats are the dashboard figures
type Stats struct {
	TotalProducts   int   `json:"total_products"`
	TotalCategories int   `json:"total_categories"`
	DataBytes       int   `json:"data_bytes"`
	Images          int   `json:"images"`
	ImageBytes      int64 `json:"image_bytes"`
}

// Stats returns the dashboard figures. DataBytes is the size of the product
// list as JSON.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	products, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	categories := map[string]bool{}
	for _, p := range products {
		categories[p.Category] = true
	}
	data, err := json.Marshal(products)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		TotalProducts:   len(products),
		TotalCategories: len(categories),
		DataBytes:       len(data),
	}
	blobs, err := s.blobs.List(ctx, ImagePrefix)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Warnln("cannot list product images")
		return stats, nil
	}
	stats.Images = len(blobs)
	for _, b := range blobs {
		stats.ImageBytes += b.Size
	}
	return stats, nil
}

// IsValidation returns true if err is a *ValidationError or a *schema.Error
func IsValidation(err error) bool {
	var verr *ValidationError
	var serr *schema.Error
	return errors.As(err, &verr) || errors.As(err, &serr)
}
