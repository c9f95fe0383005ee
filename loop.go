package announce

import (
	"context"
	"fmt"
	"os"
)

// Keepalive runs the responder's event dispatch until ctx is done. A failed
// poll is logged and retried after the retry interval; a poll that returns
// without error is restarted at once.
func Keepalive(ctx context.Context, p Poller, opts ...Option) {
	o := newOptions(opts)
	for {
		err := p.Poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			continue
		}

		o.log.WithError(err).Warn("responder poll failed")
		o.metrics.pollFailed()

		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(o.retryInterval):
		}
	}
}

// Publish resolves cfg.Records, announces them and, once the group is
// committed, starts Keepalive in its own goroutine. The loop lives as long as
// ctx. Every returned error is fatal: nothing has been published.
func Publish(ctx context.Context, cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	host := cfg.Hostname
	if host == "" {
		var err error
		if host, err = os.Hostname(); err != nil {
			return nil, fmt.Errorf("could not determine host: %w", err)
		}
	}

	specs, err := Resolve(cfg.Records, SelfHostname(host))
	if err != nil {
		return nil, err
	}

	opts := cfg.options()
	s := NewSession(specs, cfg.Dial, opts...)
	if _, err := s.Announce(ctx); err != nil {
		return nil, err
	}
	if s.State() != StateCommitted {
		return s, nil
	}

	go Keepalive(ctx, s.Client(), opts...)
	return s, nil
}
