package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/service"
)

const (
	refreshWindow    = 30 * time.Minute
	concurrencyLimit = 10
)

type TokenRefreshJob struct {
	sr       repository.SocialAccountRepository
	accounts service.AccountService
	now      func() time.Time
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, accounts service.AccountService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:       sr,
		accounts: accounts,
		now:      time.Now,
	}
}

// RefreshTokens renews every token expiring within the next 30 minutes and
// returns how many were refreshed.
func (c *TokenRefreshJob) RefreshTokens(ctx context.Context) int {
	currentTime := c.now()
	accounts, err := c.sr.ListByTimeInterval(ctx, currentTime, currentTime.Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		refreshed int
	)
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		if acc.AccountStatus == models.AccountStatusExpired {
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.accounts.RefreshAccount(ctx, acc); err != nil {
				slog.Warn("unable to refresh token", "account_id", acc.ID, "platform", acc.Platform, "error", err)
				return
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}(acc)
	}

	wg.Wait()
	return refreshed
}
