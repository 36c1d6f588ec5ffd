// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/relabs-tech/vitrine/core/baas"
	"github.com/relabs-tech/vitrine/core/csql"
	"github.com/relabs-tech/vitrine/core/logger"
)

var validCollectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Postgres is a document store with one table per collection. Each table has a
// uuid primary key named {collection}_id, the two timestamps and the document
// as a json properties column.
type Postgres struct {
	db          *csql.DB
	collections map[string]*pgCollection
}

// NewPostgres creates the tables for the named collections in db's schema and
// returns the store. Collections not named here cannot be used.
func NewPostgres(ctx context.Context, db *csql.DB, collections ...string) (*Postgres, error) {
	p := &Postgres{db: db, collections: map[string]*pgCollection{}}
	for _, name := range collections {
		if !validCollectionName.MatchString(name) {
			return nil, fmt.Errorf("invalid collection name '%s'", name)
		}
		c := newPgCollection(db, name)
		if _, err := db.ExecContext(ctx, c.createQuery); err != nil {
			return nil, fmt.Errorf("cannot create collection %s: %w", name, err)
		}
		logger.Default().Debugf("docstore: collection %s.%s ready", db.Schema, name)
		p.collections[name] = c
	}
	return p, nil
}

// Collection implements baas.DocumentStore
func (p *Postgres) Collection(name string) baas.Collection {
	if c, ok := p.collections[name]; ok {
		return c
	}
	return unknownCollection(name)
}

type pgCollection struct {
	db          *csql.DB
	name        string
	createQuery string
	insertQuery string
	readQuery   string
	updateQuery string
	deleteQuery string
	listQuery   string
}

func newPgCollection(db *csql.DB, name string) *pgCollection {
	table := fmt.Sprintf("%s.\"%s\"", db.Schema, name)
	id := name + "_id"
	columns := fmt.Sprintf("%s, created_at, updated_at, properties", id)
	return &pgCollection{
		db:   db,
		name: name,
		createQuery: fmt.Sprintf(`CREATE table IF NOT EXISTS %s
(%s uuid NOT NULL DEFAULT uuid_generate_v4(),
created_at timestamp NOT NULL,
updated_at timestamp NOT NULL,
properties json NOT NULL DEFAULT '{}'::jsonb,
PRIMARY KEY(%s)
);
CREATE index IF NOT EXISTS "%s_created_at" ON %s(created_at);`, table, id, id, name, table),
		insertQuery: fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1, $2, $3, $4);", table, columns),
		readQuery:   fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1;", columns, table, id),
		updateQuery: fmt.Sprintf("UPDATE %s SET properties = $2, updated_at = $3 WHERE %s = $1 RETURNING created_at;", table, id),
		deleteQuery: fmt.Sprintf("DELETE FROM %s WHERE %s = $1;", table, id),
		listQuery:   fmt.Sprintf("SELECT %s FROM %s ORDER BY ", columns, table),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, baas.ErrNotFound
	}
	return u, nil
}

func (c *pgCollection) Create(ctx context.Context, doc baas.Document) (baas.Document, error) {
	id := uuid.New()
	if doc.ID != "" {
		var err error
		if id, err = uuid.Parse(doc.ID); err != nil {
			return doc, fmt.Errorf("invalid document id '%s': %w", doc.ID, err)
		}
	}
	doc.ID = id.String()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if len(doc.Data) == 0 {
		doc.Data = json.RawMessage("{}")
	}
	_, err := c.db.ExecContext(ctx, c.insertQuery, id, doc.CreatedAt, doc.UpdatedAt, string(doc.Data))
	if err != nil {
		return doc, fmt.Errorf("cannot create %s document: %w", c.name, err)
	}
	return doc, nil
}

func (c *pgCollection) Read(ctx context.Context, id string) (baas.Document, error) {
	u, err := parseID(id)
	if err != nil {
		return baas.Document{}, err
	}
	doc, err := scanDocument(c.db.QueryRowContext(ctx, c.readQuery, u))
	if errors.Is(err, csql.ErrNoRows) {
		return doc, baas.ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("cannot read %s document %s: %w", c.name, id, err)
	}
	return doc, nil
}

func (c *pgCollection) Update(ctx context.Context, doc baas.Document) (baas.Document, error) {
	u, err := parseID(doc.ID)
	if err != nil {
		return doc, err
	}
	doc.UpdatedAt = now()
	if len(doc.Data) == 0 {
		doc.Data = json.RawMessage("{}")
	}
	err = c.db.QueryRowContext(ctx, c.updateQuery, u, string(doc.Data), doc.UpdatedAt).Scan(&doc.CreatedAt)
	if errors.Is(err, csql.ErrNoRows) {
		return doc, baas.ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("cannot update %s document %s: %w", c.name, doc.ID, err)
	}
	return doc, nil
}

func (c *pgCollection) Delete(ctx context.Context, id string) error {
	u, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx, c.deleteQuery, u)
	if err != nil {
		return fmt.Errorf("cannot delete %s document %s: %w", c.name, id, err)
	}
	if count, _ := res.RowsAffected(); count == 0 {
		return baas.ErrNotFound
	}
	return nil
}

func (c *pgCollection) List(ctx context.Context, order baas.Order) ([]baas.Document, error) {
	rows, err := c.db.QueryContext(ctx, c.listQuery+order.String()+", "+c.name+"_id;")
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", c.name, err)
	}
	defer rows.Close()
	docs := []baas.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan %s: %w", c.name, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (baas.Document, error) {
	var (
		doc        baas.Document
		id         uuid.UUID
		properties []byte
	)
	if err := row.Scan(&id, &doc.CreatedAt, &doc.UpdatedAt, &properties); err != nil {
		return doc, err
	}
	doc.ID = id.String()
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	doc.Data = json.RawMessage(properties)
	return doc, nil
}

// unknownCollection is returned for collections a store was not set up with
type unknownCollection string

func (u unknownCollection) err() error {
	return fmt.Errorf("unknown collection '%s'", string(u))
}

func (u unknownCollection) Create(context.Context, baas.Document) (baas.Document, error) {
	return baas.Document{}, u.err()
}

func (u unknownCollection) Read(context.Context, string) (baas.Document, error) {
	return baas.Document{}, u.err()
}

func (u unknownCollection) Update(context.Context, baas.Document) (baas.Document, error) {
	return baas.Document{}, u.err()
}

func (u unknownCollection) Delete(context.Context, string) error {
	return u.err()
}

func (u unknownCollection) List(context.Context, baas.Order) ([]baas.Document, error) {
	return nil, u.err()
}
