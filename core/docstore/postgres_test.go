package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/csql"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(`CREATE table IF NOT EXISTS shop."products"`).WillReturnResult(sqlmock.NewResult(0, 0))
	p, err := NewPostgres(context.Background(), &csql.DB{DB: db, Schema: "shop"}, "products")
	require.NoError(t, err)
	return p, mock
}

func TestNewPostgresRejectsBadNames(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = NewPostgres(context.Background(), &csql.DB{DB: db, Schema: "shop"}, `products"; DROP`)
	assert.Error(t, err)
}

func TestPostgresCreate(t *testing.T) {
	p, mock := newMockStore(t)
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO shop."products" \(products_id, created_at, updated_at, properties\)`).
		WithArgs(sqlmock.AnyArg(), created, created, `{"name":"Vaso"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := p.Collection("products").Create(context.Background(), baas.Document{
		CreatedAt: created,
		Data:      json.RawMessage(`{"name":"Vaso"}`),
	})
	require.NoError(t, err)
	_, err = uuid.Parse(doc.ID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadMissing(t *testing.T) {
	p, mock := newMockStore(t)
	id := uuid.New()
	mock.ExpectQuery(`SELECT products_id, created_at, updated_at, properties FROM shop."products" WHERE products_id = \$1`).
		WithArgs(id).
		WillReturnError(csql.ErrNoRows)

	_, err := p.Collection("products").Read(context.Background(), id.String())
	assert.True(t, errors.Is(err, baas.ErrNotFound))

	_, err = p.Collection("products").Read(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, baas.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	p, mock := newMockStore(t)
	a, b := uuid.New(), uuid.New()
	ts := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM shop."products" ORDER BY created_at ASC, products_id`).
		WillReturnRows(sqlmock.NewRows([]string{"products_id", "created_at", "updated_at", "properties"}).
			AddRow(a.String(), ts, ts, []byte(`{"n":1}`)).
			AddRow(b.String(), ts.Add(time.Hour), ts.Add(time.Hour), []byte(`{"n":2}`)))

	docs, err := p.Collection("products").List(context.Background(), baas.OrderCreatedAsc)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a.String(), docs[0].ID)
	assert.JSONEq(t, `{"n":2}`, string(docs[1].Data))
}

func TestPostgresUpdateAndDelete(t *testing.T) {
	p, mock := newMockStore(t)
	id := uuid.New()
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`UPDATE shop."products" SET properties = \$2, updated_at = \$3 WHERE products_id = \$1 RETURNING created_at`).
		WithArgs(id, `{"n":3}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec(`DELETE FROM shop."products" WHERE products_id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c := p.Collection("products")
	doc, err := c.Update(context.Background(), baas.Document{ID: id.String(), Data: json.RawMessage(`{"n":3}`)})
	require.NoError(t, err)
	assert.Equal(t, created, doc.CreatedAt)

	err = c.Delete(context.Background(), id.String())
	assert.True(t, errors.Is(err, baas.ErrNotFound), "zero affected rows means not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUnknownCollection(t *testing.T) {
	p, _ := newMockStore(t)
	_, err := p.Collection("orders").List(context.Background(), baas.OrderCreatedDesc)
	assert.Error(t, err)
}
