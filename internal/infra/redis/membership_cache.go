package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"cashpoints/internal/domain/ports/adapter"
	"cashpoints/internal/infra/metrics"
)

var _ adapter.MembershipChecker = (*MembershipCache)(nil)

// MembershipCache caches group membership lookups in Redis so a burst of
// /start and verify taps does not hammer the Telegram API. Only positive
// and negative results returned without error are cached.
type MembershipCache struct {
	client RedisClient
	next   adapter.MembershipChecker
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewMembershipCache(client RedisClient, next adapter.MembershipChecker, ttl time.Duration, logger *zerolog.Logger) *MembershipCache {
	l := logger.With().Str("component", "membership-cache").Logger()
	return &MembershipCache{client: client, next: next, ttl: ttl, log: &l}
}

func membershipKey(tgID int64) string {
	return fmt.Sprintf("group_member:%d", tgID)
}

func (c *MembershipCache) IsGroupMember(ctx context.Context, tgID int64) (bool, error) {
	key := membershipKey(tgID)
	if v, err := c.client.Get(ctx, key); err == nil {
		member := v == "1"
		metrics.IncMembershipCheck("cache", member)
		return member, nil
	}

	member, err := c.next.IsGroupMember(ctx, tgID)
	if err != nil {
		return false, err
	}
	metrics.IncMembershipCheck("api", member)

	if err := c.client.Set(ctx, key, boolVal(member), c.ttl); err != nil {
		c.log.Warn().Err(err).Int64("tg_id", tgID).Msg("cache membership result")
	}
	return member, nil
}

// Invalidate drops the cached entry so the next check hits the API. Called
// after a verify tap: the user just joined and a stale negative would block
// the reward until the TTL expires.
func (c *MembershipCache) Invalidate(ctx context.Context, tgID int64) {
	if err := c.client.Del(ctx, membershipKey(tgID)); err != nil {
		c.log.Warn().Err(err).Int64("tg_id", tgID).Msg("invalidate membership cache")
	}
}

func boolVal(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
