// Package domain contains the core business entities and value objects
// of the recommendation engine: puzzles, ratings, users, and the
// similarity cache, together with their validation rules. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
