package container

import (
	"capsnap/internal/application/port"
	"capsnap/internal/application/service"
)

// Container builds application services on first use, all sharing one
// gateway. It does not own the gateway.
type Container struct {
	gw     port.Gateway
	source port.SymbolSource
	opts   service.SnapshotOptions

	capitalService  *service.CapitalService
	positionService *service.PositionService
	snapshotService *service.SnapshotService
	symbolService   *service.SymbolService
}

func New(gw port.Gateway, source port.SymbolSource, opts service.SnapshotOptions) *Container {
	return &Container{
		gw:     gw,
		source: source,
		opts:   opts,
	}
}

func (c *Container) CapitalService() *service.CapitalService {
	if c.capitalService == nil {
		c.capitalService = service.NewCapitalService(c.gw)
	}
	return c.capitalService
}

func (c *Container) PositionService() *service.PositionService {
	if c.positionService == nil {
		c.positionService = service.NewPositionService(c.gw)
	}
	return c.positionService
}

func (c *Container) SnapshotService() *service.SnapshotService {
	if c.snapshotService == nil {
		c.snapshotService = service.NewSnapshotService(c.gw, c.CapitalService(), c.PositionService(), c.opts)
	}
	return c.snapshotService
}

func (c *Container) SymbolService() *service.SymbolService {
	if c.symbolService == nil {
		c.symbolService = service.NewSymbolService(c.gw, c.source)
	}
	return c.symbolService
}
