package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dancycodes/chopwallet/internal/handlers"
)

// ClearanceSweeper worker periodically releases eligible clearances so held
// funds become withdrawable without manual intervention.
type ClearanceSweeper struct {
	logger  *slog.Logger
	sweeper handlers.SweepService

	// How often to run the sweep
	sweepInterval time.Duration
}

// NewClearanceSweeper creates a new clearance sweeper worker
func NewClearanceSweeper(
	logger *slog.Logger,
	sweeper handlers.SweepService,
	sweepInterval time.Duration,
) *ClearanceSweeper {
	return &ClearanceSweeper{
		logger:        logger,
		sweeper:       sweeper,
		sweepInterval: sweepInterval,
	}
}

// Start begins the periodic clearance sweep
func (cs *ClearanceSweeper) Start(ctx context.Context) {
	cs.logger.Info("Starting clearance sweeper worker",
		"sweep_interval", cs.sweepInterval.String())

	// Run an initial sweep immediately
	if err := cs.sweepOnce(ctx); err != nil {
		cs.logger.Error("Initial clearance sweep failed", "error", err)
	}

	ticker := time.NewTicker(cs.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cs.logger.Info("Clearance sweeper worker stopped")
			return
		case <-ticker.C:
			if err := cs.sweepOnce(ctx); err != nil {
				cs.logger.Error("Clearance sweep failed", "error", err)
			}
		}
	}
}

func (cs *ClearanceSweeper) sweepOnce(ctx context.Context) error {
	cs.logger.Debug("Starting clearance sweep")

	count, err := cs.sweeper.SweepEligible(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		cs.logger.Info("Cleared eligible clearances", "count", count)
	} else {
		cs.logger.Debug("No eligible clearances")
	}

	return nil
}
