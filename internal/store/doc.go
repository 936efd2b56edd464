// Package store defines the persistence interfaces and their sentinel
// errors: users, ratings, the puzzle catalog, Leitner states, similarity
// caches, and round history. Implementations live under
// internal/platform; services depend only on these interfaces.
package store
