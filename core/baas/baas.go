// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package baas declares the backend-as-a-service boundary the catalog consumes:
authentication, a document store with ordered collections and a blob store.

The package only holds interfaces, the value types crossing the boundary and
the sentinel errors. Implementations live in core/docstore, core/kss and
core/auth.
*/
package baas

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/vitrine/core/access"
)

// Sentinel errors shared by all implementations. Callers test them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLocked       = errors.New("account locked")
)

// Session is the result of a successful sign-in
type Session struct {
	Token     string    `json:"token"`
	Identity  string    `json:"identity"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Authenticator signs users in and out and turns session tokens into authorizations
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*access.Authorization, error)
}

// Document is a stored JSON document with its bookkeeping timestamps
type Document struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// Order is the sort order of Collection.List
type Order int

// The list orders, both on the creation time
const (
	OrderCreatedDesc Order = iota
	OrderCreatedAsc
)

// String implements fmt.Stringer
func (o Order) String() string {
	if o == OrderCreatedAsc {
		return "created_at ASC"
	}
	return "created_at DESC"
}

// Collection is a named set of documents
//
// Create assigns a new ID when doc.ID is empty and sets both timestamps if
// they are zero. Update replaces Data, keeps CreatedAt and sets UpdatedAt; it
// returns ErrNotFound for unknown IDs, as do Read and Delete.
type Collection interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Read(ctx context.Context, id string) (Document, error)
	Update(ctx context.Context, doc Document) (Document, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, order Order) ([]Document, error)
}

// DocumentStore hands out collections by name
type DocumentStore interface {
	Collection(name string) Collection
}

// BlobInfo describes a stored blob
type BlobInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobStore stores binary objects by key
//
// Download returns ErrNotFound for unknown keys; the caller closes the reader.
// Delete of an unknown key is not an error.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	URL(key string) string
}
