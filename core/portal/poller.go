package portal

import (
	"context"
	"time"

	"github.com/trezcool/masomo-portal/core"
)

// DefaultPollInterval is used when a poller is given a non-positive interval.
const DefaultPollInterval = 30 * time.Second

// NotificationPoller refreshes the unread notification count while its context lives.
type NotificationPoller struct {
	svc      *Service
	interval time.Duration
	onChange func(count int)
	onError  func(err error)
	logger   core.Logger
}

type PollerOption func(*NotificationPoller)

// OnPollError is called with every failed refresh; polling goes on.
func OnPollError(fn func(err error)) PollerOption {
	return func(p *NotificationPoller) { p.onError = fn }
}

func NewNotificationPoller(svc *Service, interval time.Duration, onChange func(count int), opts ...PollerOption) *NotificationPoller {
	p := &NotificationPoller{
		svc:      svc,
		interval: interval,
		onChange: onChange,
		logger:   svc.logger,
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reports the current count, then refetches it every interval and reports changes.
// It returns when ctx is done; a result arriving after that is dropped.
func (p *NotificationPoller) Run(ctx context.Context) {
	last := -1
	report := func(count int, err error) {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Warn("refreshing unread notification count", err)
			if p.onError != nil {
				p.onError(err)
			}
			return
		}
		if count != last {
			last = count
			p.onChange(count)
		}
	}

	report(p.svc.UnreadNotificationCount(ctx))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report(p.svc.RefreshUnreadNotificationCount(ctx))
		}
	}
}
