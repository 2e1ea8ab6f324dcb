// Package utils provides general-purpose helper utilities
// used across different parts of the application.
// Includes tools for working with context, type-safe keys, identifiers
// and HTTP response writing.
package utils

import (
	"context"

	"github.com/MKhiriev/go-health-sync/models"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
// Implements the fmt.Stringer interface.
func (c contextKey) String() string {
	return string(c)
}

// TriggerSourceCtxKey is the key used to store what asked for a sync cycle.
//
// Example of writing a value to the context:
//
//	ctx := utils.WithTriggerSource(ctx, models.TriggerManual)
var TriggerSourceCtxKey = contextKey("triggerSource")

// WithTriggerSource returns a copy of ctx carrying source.
func WithTriggerSource(ctx context.Context, source models.TriggerSource) context.Context {
	return context.WithValue(ctx, TriggerSourceCtxKey, source)
}

// GetTriggerSourceFromContext retrieves the trigger source from the context.
//
// Returns the trigger source and an ok flag:
//   - ok == true  — value is found and has the correct type
//   - ok == false — value is missing or has an unexpected type
func GetTriggerSourceFromContext(ctx context.Context) (models.TriggerSource, bool) {
	source, ok := ctx.Value(TriggerSourceCtxKey).(models.TriggerSource)
	return source, ok
}
