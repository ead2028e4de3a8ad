package services

import (
	"context"
	"log"
	"time"

	"github.com/example/retailpulse/internal/repository"
)

// CleanupService periodically removes expired OTP rows and revoked tokens.
type CleanupService struct {
	store    repository.Store
	interval time.Duration
	now      func() time.Time
}

func NewCleanupService(store repository.Store, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CleanupService{store: store, interval: interval, now: time.Now}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *CleanupService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[Cleanup] started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Cleanup] stopped")
			return
		case <-ticker.C:
			if err := s.SweepExpired(ctx, s.now()); err != nil {
				log.Printf("[Cleanup] sweep failed: %v", err)
			}
		}
	}
}

// SweepExpired deletes everything that expired before now.
func (s *CleanupService) SweepExpired(ctx context.Context, now time.Time) error {
	otps, err := s.store.DeleteExpiredOtps(ctx, now)
	if err != nil {
		return err
	}
	tokens, err := s.store.DeleteExpiredRevokedTokens(ctx, now)
	if err != nil {
		return err
	}
	if otps > 0 || tokens > 0 {
		log.Printf("[Cleanup] removed %d expired otp rows and %d revoked tokens", otps, tokens)
	}
	return nil
}
