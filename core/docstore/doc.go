/*
Package docstore implements baas.DocumentStore

Two stores are available: Postgres, which keeps each collection in its own table
within the service schema, and Memory for development and tests. Both keep the
document itself opaque as JSON and only manage id and timestamps.
*/
package docstore
