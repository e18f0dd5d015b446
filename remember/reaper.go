package remember

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dverhagen/doorman/store"
)

// DefaultReapInterval is how often the reaper sweeps expired rows.
const DefaultReapInterval = time.Hour

// Reaper periodically deletes expired persistent-login credentials.
// Expiry is enforced at resolution time regardless; the reaper only
// keeps the table from growing without bound.
type Reaper struct {
	credentials store.CredentialStore
	interval    time.Duration
	logger      *slog.Logger
	stopOnce    sync.Once
	stopCh      chan struct{}
}

// NewReaper creates a reaper sweeping at the given interval (zero
// means DefaultReapInterval). A nil logger disables logging.
func NewReaper(credentials store.CredentialStore, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reaper{
		credentials: credentials,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine. Call Stop to end it.
func (rp *Reaper) Start() {
	go rp.loop()
}

// Stop ends the sweep loop.
func (rp *Reaper) Stop() {
	rp.stopOnce.Do(func() { close(rp.stopCh) })
}

func (rp *Reaper) loop() {
	ticker := time.NewTicker(rp.interval)
	defer ticker.Stop()
	for {
		select {
		case <-rp.stopCh:
			return
		case <-ticker.C:
			rp.Sweep(context.Background())
		}
	}
}

// Sweep removes credentials that expired before now.
func (rp *Reaper) Sweep(ctx context.Context) {
	n, err := rp.credentials.DeleteExpired(ctx, time.Now())
	if err != nil {
		rp.logger.Warn("sweeping expired persistent logins", "error", err)
		return
	}
	if n > 0 {
		rp.logger.Info("swept expired persistent logins", "count", n)
	}
}
