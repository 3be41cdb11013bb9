package billing

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
)

// AccountGateway applies one atomic partial update to an account. It is the
// only persistence the synchronizer needs; it never reads before writing.
type AccountGateway interface {
	UpdateAccount(ctx context.Context, accountID string, update AccountUpdate) error
}

// PlanCacheInvalidator drops cached plan snapshots of an account.
type PlanCacheInvalidator interface {
	InvalidatePlan(ctx context.Context, accountID string) error
}

type cachedAccountGateway struct {
	next  AccountGateway
	cache PlanCacheInvalidator
}

// NewCachedAccountGateway invalidates the cached plan after every successful
// update so dashboards stop serving the previous tier.
func NewCachedAccountGateway(next AccountGateway, cache PlanCacheInvalidator) AccountGateway {
	if cache == nil {
		return next
	}
	return &cachedAccountGateway{next: next, cache: cache}
}

func (g *cachedAccountGateway) UpdateAccount(ctx context.Context, accountID string, update AccountUpdate) error {
	if err := g.next.UpdateAccount(ctx, accountID, update); err != nil {
		return err
	}
	// The row is already authoritative; a stale cache entry expires on its own.
	if err := g.cache.InvalidatePlan(ctx, accountID); err != nil {
		log.Warnf("[Billing Webhook] plan cache invalidation failed for account %s: %v", accountID, err)
	}
	return nil
}
