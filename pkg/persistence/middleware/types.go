// Package middleware wraps record stores with at-rest protections.
package middleware

import "github.com/manas360/stepwise/pkg/ports"

// Middleware allows wrapping a RecordStore to add behavior.
type Middleware func(ports.RecordStore) ports.RecordStore

// Chain applies middlewares so that the first one listed is the outermost.
func Chain(store ports.RecordStore, mws ...Middleware) ports.RecordStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
