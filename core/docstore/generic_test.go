package docstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vitrine/core/baas"
)

// testCollection runs the behaviour every baas.Collection must show against c,
// which must be empty.
func testCollection(t *testing.T, c baas.Collection) {
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	first, err := c.Create(ctx, baas.Document{CreatedAt: base, Data: json.RawMessage(`{"name":"Vaso"}`)})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, base, first.UpdatedAt)

	second, err := c.Create(ctx, baas.Document{CreatedAt: base.Add(time.Hour), Data: json.RawMessage(`{"name":"Chaveiro"}`)})
	require.NoError(t, err)

	read, err := c.Read(ctx, first.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Vaso"}`, string(read.Data))
	assert.True(t, base.Equal(read.CreatedAt))

	desc, err := c.List(ctx, baas.OrderCreatedDesc)
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, second.ID, desc[0].ID)
	assert.Equal(t, first.ID, desc[1].ID)

	asc, err := c.List(ctx, baas.OrderCreatedAsc)
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, first.ID, asc[0].ID)

	read.Data = json.RawMessage(`{"name":"Vaso Grande"}`)
	read.CreatedAt = time.Time{}
	updated, err := c.Update(ctx, read)
	require.NoError(t, err)
	assert.True(t, base.Equal(updated.CreatedAt), "update keeps created_at")
	assert.True(t, updated.UpdatedAt.After(base))

	read, err = c.Read(ctx, first.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Vaso Grande"}`, string(read.Data))

	require.NoError(t, c.Delete(ctx, first.ID))
	_, err = c.Read(ctx, first.ID)
	assert.True(t, errors.Is(err, baas.ErrNotFound))
	assert.True(t, errors.Is(c.Delete(ctx, first.ID), baas.ErrNotFound))

	_, err = c.Update(ctx, baas.Document{ID: first.ID})
	assert.True(t, errors.Is(err, baas.ErrNotFound))
}
