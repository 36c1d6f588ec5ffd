package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vitrine/catalog"
	"github.com/relabs-tech/vitrine/core"
	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/docstore"
	"github.com/relabs-tech/vitrine/core/events"
	"github.com/relabs-tech/vitrine/core/kss"
	"github.com/relabs-tech/vitrine/core/schema"
)

type recorder struct {
	mutex         sync.Mutex
	notifications []events.Notification
}

func (r *recorder) Publish(ctx context.Context, n events.Notification) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) operations() []core.Operation {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var ops []core.Operation
	for _, n := range r.notifications {
		ops = append(ops, n.Operation)
	}
	return ops
}

type fixture struct {
	service   *catalog.Service
	blobs     *kss.LocalFilesystem
	publisher *recorder
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	blobs, err := kss.NewLocalFilesystem(kss.LocalConfiguration{BasePath: t.TempDir()}, "http://vitrine.test")
	require.NoError(t, err)
	f := &fixture{
		blobs:     blobs,
		publisher: &recorder{},
		clock:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service, err = catalog.NewService(docstore.NewMemory(), blobs, catalog.Config{
		Publisher: f.publisher,
		Now:       func() time.Time { return f.clock },
	})
	require.NoError(t, err)
	return f
}

func input(name, category string) catalog.ProductInput {
	return catalog.ProductInput{
		Name:        name,
		Description: "Produto impresso em 3D para testes.",
		Price:       "19.9",
		Category:    category,
		Material:    "PLA",
		Colors:      []string{"Branco"},
		Weight:      "50",
		PrintTime:   "2 horas",
	}
}

// create saves a product and advances the clock, so creation order is stable
func (f *fixture) create(t *testing.T, in catalog.ProductInput) catalog.Product {
	p, err := f.service.Save(context.Background(), "", in)
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)
	return p
}

func TestSaveCreatesAndUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := input("Vaso", "decoracao")
	in.Dimensions = "10,15,5"
	created := f.create(t, in)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "10 × 15 × 5 cm", created.Dimensions)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), created.CreatedAt)

	in.Name = "Vaso Grande"
	in.Price = "29.90"
	updated, err := f.service.Save(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	got, err := f.service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Vaso Grande", got.Name)
	assert.Equal(t, 29.9, got.Price)

	_, err = f.service.Save(ctx, "does-not-exist", in)
	assert.True(t, errors.Is(err, baas.ErrNotFound))

	assert.Equal(t, []core.Operation{core.OperationCreate, core.OperationUpdate}, f.publisher.operations())
}

func TestSaveRejectsInvalidForm(t *testing.T) {
	f := newFixture(t)
	in := input("V", "decoracao")
	_, err := f.service.Save(context.Background(), "", in)
	var verr *catalog.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"O nome deve ter pelo menos 3 caracteres"}, verr.Messages)
	assert.True(t, catalog.IsValidation(err))
	assert.Empty(t, f.publisher.operations())
}

func TestListIsInvalidatedByWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, input("Primeiro", "decoracao"))

	products, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)

	second := f.create(t, input("Segundo", "decoracao"))
	products, err = f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, second.ID, products[0].ID, "newest first")

	require.NoError(t, f.service.Delete(ctx, second.ID))
	products, err = f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestShowcaseBrowseAndDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 8; i++ {
		in := input(fmt.Sprintf("Miniatura %02d", i), "brinquedos")
		in.Colors = []string{"Branco", "Preto", "Azul", "Verde", "Rosa", "Roxo", "Cor Nova"}
		ids = append(ids, f.create(t, in).ID)
	}
	f.create(t, input("Régua", "educacao"))

	showcase, err := f.service.Showcase(ctx, "")
	require.NoError(t, err)
	require.Len(t, showcase, 6)
	assert.Equal(t, "Régua", showcase[0].Name)
	assert.Equal(t, catalog.PlaceholderCard, showcase[0].Image)

	showcase, err = f.service.Showcase(ctx, "educacao")
	require.NoError(t, err)
	assert.Len(t, showcase, 1)

	listing, err := f.service.Browse(ctx, catalog.Query{Category: "brinquedos", Sort: catalog.SortNameAsc, Page: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Query.Page)
	assert.Equal(t, 8, listing.Pagination.Total)
	require.Len(t, listing.Products, 8)
	c := listing.Products[0]
	assert.Equal(t, "Miniatura 00", c.Name)
	assert.Equal(t, "R$ 19.90", c.PriceText)
	assert.Equal(t, "Brinquedos", c.CategoryName)
	assert.Len(t, c.Colors, 5)
	assert.Equal(t, 2, c.MoreColors)

	listing, err = f.service.Browse(ctx, catalog.Query{Search: "pla"})
	require.NoError(t, err)
	assert.Equal(t, 9, listing.Pagination.Total, "material is searched on the storefront")

	d, err := f.service.Detail(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, catalog.PlaceholderDetail, d.MainImage)
	assert.Len(t, d.Related, 4)
	for _, r := range d.Related {
		assert.NotEqual(t, ids[0], r.ID)
	}
	assert.Len(t, d.Colors, 7)
	assert.Equal(t, "#cccccc", d.Colors[6].Hex)
	assert.Equal(t, []catalog.SpecItem{
		{Label: "Material", Value: "PLA"},
		{Label: "Peso", Value: "50g"},
		{Label: "Tempo de Impressão", Value: "2 horas"},
	}, d.Specs)
	assert.Equal(t, "https://wa.me/5519994083609?text=Ol%C3%A1!%20Gostaria%20de%20um%20or%C3%A7amento%20para%20o%20produto%3A%20Miniatura%2000", d.Contact)

	_, err = f.service.Detail(ctx, "unknown")
	assert.True(t, errors.Is(err, baas.ErrNotFound))
}

func TestAdminList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		f.create(t, input(fmt.Sprintf("Peça %02d", i), "prototipos"))
	}
	in := input("Suporte", "utilitarios")
	in.Description = "Suporte com peça de encaixe"
	f.create(t, in)

	listing, err := f.service.AdminList(ctx, catalog.Query{Page: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Pagination.Page)
	assert.Len(t, listing.Products, 6)
	assert.Equal(t, "31 produtos encontrados", listing.CountText)
	assert.Equal(t, "Mostrando 26-31 de 31", listing.Pagination.Info)

	listing, err = f.service.AdminList(ctx, catalog.Query{Search: "peça", Sort: catalog.SortOldest})
	require.NoError(t, err)
	assert.Equal(t, 31, listing.Pagination.Total)
	assert.True(t, listing.Products[0].Highlight)
	assert.Equal(t, "Peça 00", listing.Products[0].Name)

	listing, err = f.service.AdminList(ctx, catalog.Query{Search: "pla"})
	require.NoError(t, err)
	assert.Equal(t, 0, listing.Pagination.Total, "material is not searched in the admin panel")
}

func TestUploadAndDeleteImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	images, err := f.service.UploadImages(ctx, "", 0, []catalog.Upload{
		{Name: "frente.png", ContentType: "image/png", Size: 3, Data: []byte("png")},
		{Name: "../lado b.jpg", ContentType: "image/jpeg", Size: 3, Data: []byte("jpg")},
	})
	require.NoError(t, err)
	require.Len(t, images, 2)
	millis := f.clock.UnixMilli()
	assert.Equal(t, fmt.Sprintf("products/new_%d/%d_frente.png", millis, millis), images[0].Key)
	assert.Equal(t, fmt.Sprintf("products/new_%d/%d_lado_b.jpg", millis, millis+1), images[1].Key)
	assert.Equal(t, "http://vitrine.test/blobs/"+images[0].Key, images[0].URL)

	_, err = f.service.UploadImages(ctx, "", 0, []catalog.Upload{{Name: "a.txt", ContentType: "text/plain"}})
	assert.True(t, catalog.IsValidation(err))
	_, err = f.service.UploadImages(ctx, "../x", 0, []catalog.Upload{{Name: "a.png", ContentType: "image/png"}})
	assert.True(t, catalog.IsValidation(err))

	in := input("Luminária", "decoracao")
	in.Images = []string{images[0].Key, images[1].Key}
	p := f.create(t, in)

	d, err := f.service.Detail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, images[0].URL, d.MainImage)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProducts)
	assert.Equal(t, 1, stats.TotalCategories)
	assert.Equal(t, 2, stats.Images)
	assert.Equal(t, int64(6), stats.ImageBytes)
	assert.Greater(t, stats.DataBytes, 0)

	assert.Equal(t, baas.ErrNotFound, f.service.DeleteImage(ctx, "other/key"))
	require.NoError(t, f.service.DeleteImage(ctx, images[1].Key))

	require.NoError(t, f.service.Delete(ctx, p.ID))
	blobs, err := f.blobs.List(ctx, catalog.ImagePrefix)
	require.NoError(t, err)
	assert.Empty(t, blobs)
	assert.True(t, errors.Is(f.service.Delete(ctx, p.ID), baas.ErrNotFound))
}

func TestSweepOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock = time.Now()

	images, err := f.service.UploadImages(ctx, "", 0, []catalog.Upload{
		{Name: "usada.png", ContentType: "image/png", Size: 1, Data: []byte("1")},
		{Name: "orfa.png", ContentType: "image/png", Size: 1, Data: []byte("2")},
	})
	require.NoError(t, err)
	in := input("Troféu", "esportes")
	in.Images = []string{images[0].Key}
	f.create(t, in)

	removed, err := f.service.SweepOrphans(ctx, catalog.OrphanAge)
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "fresh uploads are kept")

	f.clock = time.Now().Add(48 * time.Hour)
	removed, err = f.service.SweepOrphans(ctx, catalog.OrphanAge)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	blobs, err := f.blobs.List(ctx, catalog.ImagePrefix)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, images[0].Key, blobs[0].Key)

	c := cron.New()
	_, err = f.service.ScheduleSweep(c, "@hourly")
	assert.NoError(t, err)
	_, err = f.service.ScheduleSweep(c, "not a schedule")
	assert.Error(t, err)
}

func TestParseInput(t *testing.T) {
	f := newFixture(t)
	in, err := f.service.ParseInput([]byte(`{"name":"Vaso","price":"12,50","colors":["Preto"]}`))
	require.NoError(t, err)
	assert.Equal(t, "Vaso", in.Name)
	assert.Equal(t, catalog.Number("12,50"), in.Price)

	_, err = f.service.ParseInput([]byte(`{"name":12,"unknown":true}`))
	var serr *schema.Error
	require.True(t, errors.As(err, &serr))
	assert.Len(t, serr.Violations, 2)
	assert.True(t, strings.Contains(serr.Error(), "name"))
}

func TestContactLinks(t *testing.T) {
	f := newFixture(t)
	links := f.service.Contact()
	assert.Equal(t, "5519994083609", links.Phone)
	assert.Equal(t, "https://wa.me/5519994083609?text=Ol%C3%A1!%20Gostaria%20de%20solicitar%20um%20or%C3%A7amento%20para%20impress%C3%A3o%203D%20personalizada.", links.WhatsApp)
}

// blockingCollection holds the next List call after the store was read,
// until release is closed
type blockingCollection struct {
	baas.Collection
	mutex   sync.Mutex
	listed  chan struct{}
	release chan struct{}
}

func (c *blockingCollection) hold() (listed, release chan struct{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.listed, c.release = make(chan struct{}), make(chan struct{})
	return c.listed, c.release
}

func (c *blockingCollection) List(ctx context.Context, order baas.Order) ([]baas.Document, error) {
	docs, err := c.Collection.List(ctx, order)
	c.mutex.Lock()
	listed, release := c.listed, c.release
	c.listed, c.release = nil, nil
	c.mutex.Unlock()
	if listed != nil {
		close(listed)
		<-release
	}
	return docs, err
}

type blockingStore struct {
	baas.DocumentStore
	products *blockingCollection
}

func (s blockingStore) Collection(name string) baas.Collection {
	if name == catalog.CollectionProducts {
		return s.products
	}
	return s.DocumentStore.Collection(name)
}

func TestListDoesNotCacheAcrossConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	memory := docstore.NewMemory()
	products := &blockingCollection{Collection: memory.Collection(catalog.CollectionProducts)}
	var err error
	f.service, err = catalog.NewService(blockingStore{DocumentStore: memory, products: products}, f.blobs, catalog.Config{
		Publisher: f.publisher,
		Now:       func() time.Time { return f.clock },
	})
	require.NoError(t, err)
	ctx := context.Background()
	f.create(t, input("Vaso", "decoracao"))

	listed, release := products.hold()
	result := make(chan []catalog.Product, 1)
	go func() {
		list, err := f.service.List(ctx)
		assert.NoError(t, err)
		result <- list
	}()

	<-listed
	f.create(t, input("Luminária", "decoracao"))
	close(release)
	assert.Len(t, <-result, 1, "the list was read before the write")

	list, err := f.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Luminária", list[0].Name)

	cached, err := f.service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}
