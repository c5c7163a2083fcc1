package provider

import "context"

// StaticProvider serves fixed configuration bytes. It backs embedded
// setups where the host application assembles the config itself, and
// tests that want a loader without touching the filesystem.
type StaticProvider struct {
	data []byte
}

// NewStaticProvider creates a provider serving data as-is.
func NewStaticProvider(data []byte) *StaticProvider {
	return &StaticProvider{data: data}
}

// Type returns TypeStatic.
func (p *StaticProvider) Type() Type {
	return TypeStatic
}

// Load returns the configured bytes.
func (p *StaticProvider) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.data, nil
}

// Watch returns a nil channel: static configuration never changes.
func (p *StaticProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	return nil, nil
}

// Close is a no-op.
func (p *StaticProvider) Close() error {
	return nil
}

var _ Provider = (*StaticProvider)(nil)
