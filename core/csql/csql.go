// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package csql

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/relabs-tech/vitrine/core/logger"
)

// DB encapsulates a standard sql.DB with a schema
type DB struct {
	*sql.DB
	Schema string
}

// ErrNoRows is returned by Scan when QueryRow doesn't return a
// row. In such a case, QueryRow returns a placeholder *Row value that
// defers this error until a Scan.
var ErrNoRows = sql.ErrNoRows

var validSchema = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// OpenWithSchema opens a postgres database with a schema.
// The schema gets created if it does not exist yet.
// The returned database also has the uuid-ossp extension loaded.
func OpenWithSchema(dataSourceName, password, schema string) (*DB, error) {
	logger.Default().Infoln("connecting to postgres database:", dataSourceName)
	if password != "" {
		dataSourceName += " password=" + password
	}
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot reach postgres: %w", err)
	}
	cdb, err := WithSchema(db, schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cdb, nil
}

// WithSchema wraps an already opened database and makes sure the schema exists.
func WithSchema(db *sql.DB, schema string) (*DB, error) {
	if schema == "" {
		schema = "public"
	}
	if !validSchema.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name '%s'", schema)
	}
	logger.Default().Infoln("selected database schema:", schema)
	_, err := db.Exec(`CREATE extension IF NOT EXISTS "uuid-ossp";
CREATE schema IF NOT EXISTS ` + schema + `;`)
	if err != nil {
		return nil, fmt.Errorf("cannot create schema %s: %w", schema, err)
	}
	return &DB{DB: db, Schema: schema}, nil
}

// ClearSchema clears all the data contained in the database's schema
// Technically this is done by dropping the schema and then recreating it
func (db *DB) ClearSchema() error {
	if db.Schema == "public" {
		return fmt.Errorf("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA ` + db.Schema + ` CASCADE;
CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	return err
}
