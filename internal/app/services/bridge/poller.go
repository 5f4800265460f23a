package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/Altruva-Group/noori-bank/internal/app/metrics"
	serrors "github.com/Altruva-Group/noori-bank/internal/errors"
	"github.com/Altruva-Group/noori-bank/pkg/logger"
)

// Poller drives the delay queue: on each tick it releases every queued
// transfer whose delay has elapsed and publishes the remaining queue depth.
type Poller struct {
	svc      *Service
	interval time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewPoller constructs a poller ticking at the given interval.
func NewPoller(svc *Service, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("bridge-poller")
	}
	return &Poller{svc: svc, interval: interval, log: log}
}

func (p *Poller) Name() string { return "bridge-poller" }

func (p *Poller) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.run(ctx)
	p.log.WithField("interval", p.interval.String()).Info("bridge poller started")
	return nil
}

func (p *Poller) Stop(context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()
	p.wg.Wait()
	p.log.Info("bridge poller stopped")
	return nil
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep processes every due transfer once and records the queue depth.
func (p *Poller) Sweep(ctx context.Context) {
	pending, err := p.svc.PendingTransfers(ctx)
	if err != nil {
		p.log.WithError(err).Error("list pending transfers failed")
		return
	}

	remaining := 0
	for _, t := range pending {
		err := p.svc.ProcessDelayed(ctx, t.ID)
		switch {
		case err == nil:
		case serrors.HasCode(err, serrors.CodeDelayNotElapsed):
			remaining++
		case serrors.HasCode(err, serrors.CodeAlreadyProcessed):
			// Raced with a manual release.
		default:
			remaining++
			p.log.WithError(err).WithField("transfer_id", t.ID).Error("delayed release failed")
		}
	}
	metrics.SetBridgeQueueDepth(remaining)
}
