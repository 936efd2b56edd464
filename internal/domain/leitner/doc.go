// Package leitner implements the pure two-box spaced-repetition
// scheduling algorithm. It holds no persistence or randomness of its
// own: transitions mutate an in-memory Instance and review sampling
// takes an injectable random draw, so the full state machine can be
// exercised deterministically in tests.
package leitner
