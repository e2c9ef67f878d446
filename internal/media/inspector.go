package media

import "context"

// Inspector tells whether an element factory is installed
type Inspector interface {
	HasFactory(ctx context.Context, factory string) bool
}

// InspectorFunc adapts a function to Inspector
type InspectorFunc func(ctx context.Context, factory string) bool

// HasFactory implements Inspector
func (f InspectorFunc) HasFactory(ctx context.Context, factory string) bool {
	return f(ctx, factory)
}

// MissingFactories returns the factories of f that the inspector cannot find
func MissingFactories(ctx context.Context, inspector Inspector, f *Fragment) []string {
	var missing []string
	for _, factory := range f.Factories() {
		if !inspector.HasFactory(ctx, factory) {
			missing = append(missing, factory)
		}
	}
	return missing
}
