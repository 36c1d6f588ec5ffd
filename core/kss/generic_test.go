package kss_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vitrine/core/baas"
)

// testBlobStore runs the behaviour every baas.BlobStore must show against an empty store
func testBlobStore(t *testing.T, store baas.BlobStore) {
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, "products/a/1_front.png", "image/png", strings.NewReader("front")))
	require.NoError(t, store.Upload(ctx, "products/a/2_back.jpg", "image/jpeg", strings.NewReader("back")))
	require.NoError(t, store.Upload(ctx, "products/b/3_top.webp", "image/webp", strings.NewReader("top")))

	body, contentType, err := store.Download(ctx, "products/a/1_front.png")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "front", string(data))
	assert.Equal(t, "image/png", contentType)

	infos, err := store.List(ctx, "products/a/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "products/a/1_front.png", infos[0].Key)
	assert.Equal(t, int64(5), infos[0].Size)

	all, err := store.List(ctx, "products/")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Delete(ctx, "products/a/1_front.png"))
	_, _, err = store.Download(ctx, "products/a/1_front.png")
	assert.True(t, errors.Is(err, baas.ErrNotFound))
	assert.NoError(t, store.Delete(ctx, "products/a/1_front.png"), "deleting a missing key is fine")

	infos, err = store.List(ctx, "products/a/")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}
