// Package api handles incoming HTTP requests, request validation, and
// response formatting. It adapts external clients to the batch, review,
// rating, and auth services, translating HTTP concerns into operations
// on them.
package api
