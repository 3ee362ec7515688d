package smconfig

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// poll waits interval, reloads, and repeats until ctx is cancelled. The wait
// starts after each cycle completes, so a slow fetch never overlaps the next.
// Failures are logged and the previous snapshot stays published.
func (p *Provider) poll(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	p.logger.Info("smconfig.poller_started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("smconfig.poller_stopped")
			return
		case <-timer.C:
			changed, err := p.reload(ctx, triggerPoll)
			switch {
			case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
				p.logger.Info("smconfig.poller_stopped")
				return
			case err != nil:
				p.logger.Warn("smconfig.poll_failed", zap.Error(err))
			case changed:
				p.logger.Debug("smconfig.poll_changed")
			}
			timer.Reset(interval)
		}
	}
}
