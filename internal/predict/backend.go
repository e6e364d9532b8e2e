package predict

import "context"

// Backend runs forward inference on a tile, producing a multi-channel
// prediction map. Implementations are selected at configuration time by
// explicit injection; there is no runtime backend discovery.
//
// Infer may be called from multiple goroutines; implementations must either
// be reentrant or serialize access internally.
type Backend interface {
	Infer(ctx context.Context, tile *Tile) (*Map, error)
	Close() error
}

// BackendFunc adapts a plain function to the Backend interface. Useful for
// synthetic prediction sources in tests and tools.
type BackendFunc func(ctx context.Context, tile *Tile) (*Map, error)

// Infer calls f.
func (f BackendFunc) Infer(ctx context.Context, tile *Tile) (*Map, error) {
	return f(ctx, tile)
}

// Close is a no-op.
func (f BackendFunc) Close() error { return nil }
