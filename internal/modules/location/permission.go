// README: Location permission as reported by the host platform.
package location

import (
	"context"
	"sync/atomic"
)

type PermissionChecker interface {
	Granted(ctx context.Context) bool
}

// HostPermission holds the grant the host last reported.
type HostPermission struct {
	granted atomic.Bool
}

func NewHostPermission(granted bool) *HostPermission {
	p := &HostPermission{}
	p.granted.Store(granted)
	return p
}

func (p *HostPermission) Granted(context.Context) bool {
	return p.granted.Load()
}

func (p *HostPermission) Set(granted bool) {
	p.granted.Store(granted)
}
