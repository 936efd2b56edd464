// Package postgres provides PostgreSQL-backed implementations of the
// persistence interfaces defined in the store package. Arrays and
// nested records (boxes, batches, tag sets) are stored as JSONB.
package postgres
