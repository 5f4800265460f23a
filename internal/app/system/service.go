// Package system manages the lifecycle of long-running ledger components.
package system

import "context"

// Service represents a lifecycle-managed component. Background runners (the
// bridge release poller, the interest sweeper) implement this interface so
// the manager can start and stop them deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// NoopService satisfies Service for modules with no background work.
type NoopService struct {
	ServiceName string
}

func (s NoopService) Name() string                   { return s.ServiceName }
func (s NoopService) Start(context.Context) error    { return nil }
func (s NoopService) Stop(context.Context) error     { return nil }
