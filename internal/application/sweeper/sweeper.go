package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carnegotiate/carnegotiate/internal/application/negotiation"
)

// Sweeper runs the periodic maintenance loops: bulk expiry of overdue
// negotiations and deadline warnings for ones approaching it.
type Sweeper struct {
	negotiationSvc  *negotiation.Service
	expiryInterval  time.Duration
	warningInterval time.Duration
	warningLead     time.Duration
	logger          zerolog.Logger
}

// New creates a sweeper.
func New(
	negotiationSvc *negotiation.Service,
	expiryInterval time.Duration,
	warningInterval time.Duration,
	warningLead time.Duration,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		negotiationSvc:  negotiationSvc,
		expiryInterval:  expiryInterval,
		warningInterval: warningInterval,
		warningLead:     warningLead,
		logger:          logger.With().Str("service", "sweeper").Logger(),
	}
}

// Run blocks until ctx is done, ticking both sweeps.
func (s *Sweeper) Run(ctx context.Context) {
	expiry := time.NewTicker(s.expiryInterval)
	defer expiry.Stop()
	warning := time.NewTicker(s.warningInterval)
	defer warning.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-expiry.C:
			if _, err := s.negotiationSvc.ExpireAllDue(ctx); err != nil {
				s.logger.Error().Err(err).Msg("expiry sweep failed")
			}
		case <-warning.C:
			if _, err := s.negotiationSvc.SweepExpiryWarnings(ctx, s.warningLead); err != nil {
				s.logger.Error().Err(err).Msg("expiry warning sweep failed")
			}
		}
	}
}
