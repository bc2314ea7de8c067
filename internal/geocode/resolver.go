// Package geocode maps coordinates to IFTA jurisdictions.
package geocode

import (
	"context"
	"errors"

	"github.com/jengzang/ifta-backend-go/internal/jurisdiction"
	"github.com/jengzang/ifta-backend-go/internal/spatial"
)

// ErrNoResult is returned when a provider has no answer for a point
var ErrNoResult = errors.New("no geocoding result")

// Resolver returns the jurisdiction containing a point
type Resolver interface {
	Resolve(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, error)

// Resolve calls f
func (f ResolverFunc) Resolve(ctx context.Context, p spatial.GeoPoint) (jurisdiction.Code, error) {
	return f(ctx, p)
}

// StaticResolver resolves every point to the same jurisdiction
type StaticResolver struct {
	Code jurisdiction.Code
}

// NewStaticResolver normalizes s into a fixed resolver
func NewStaticResolver(s string) StaticResolver {
	return StaticResolver{Code: jurisdiction.Normalize(s)}
}

// Resolve returns the fixed code
func (r StaticResolver) Resolve(context.Context, spatial.GeoPoint) (jurisdiction.Code, error) {
	return r.Code, nil
}
