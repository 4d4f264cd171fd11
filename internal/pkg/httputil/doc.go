// Package httputil writes JSON responses for the watcher's HTTP endpoints.
package httputil
