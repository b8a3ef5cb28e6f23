// Package httpapi exposes the access control engine over a JSON HTTP
// surface. Handlers translate request bodies into Engine calls and map
// engine errors onto a fixed status taxonomy; rate-limited responses
// carry a Retry-After header.
package httpapi
