package alerts

import (
	"context"
	"fmt"
	"time"

	"carimport-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// KeySent holds the listing ids already included in a digest.
	KeySent = "alerts:sent"

	sentTTL         = 30 * 24 * time.Hour
	defaultLimit    = 10
	defaultMinScore = 70
)

type TopSource interface {
	TopDeals(ctx context.Context, limit int) ([]domain.ListingWithScore, error)
}

type RateSource interface {
	Rate(ctx context.Context) float64
}

// Notifier emails a digest of top-scored listings that have not been sent
// before. A blank recipient disables it. Without redis every qualifying
// listing is sent on every call.
type Notifier struct {
	Mailer   Mailer
	Listings TopSource
	Rates    RateSource
	Redis    *redis.Client
	To       string
	MinScore float64
	Limit    int
	Now      func() time.Time
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// NotifyTopDeals sends at most one digest and returns how many listings it carried.
func (n *Notifier) NotifyTopDeals(ctx context.Context) (int, error) {
	if n == nil || n.To == "" || n.Mailer == nil {
		return 0, nil
	}
	limit := n.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	minScore := n.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	top, err := n.Listings.TopDeals(ctx, limit)
	if err != nil {
		return 0, err
	}
	fresh := make([]domain.ListingWithScore, 0, len(top))
	for _, it := range top {
		if it.Score == nil || it.Score.CombinedScore < minScore {
			continue
		}
		if n.alreadySent(ctx, it.ID.String()) {
			continue
		}
		fresh = append(fresh, it)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	rate := 0.0
	if n.Rates != nil {
		rate = n.Rates.Rate(ctx)
	}
	html, err := RenderDigest(fresh, minScore, rate, n.now())
	if err != nil {
		return 0, err
	}
	subject := fmt.Sprintf("%d new import deals", len(fresh))
	if len(fresh) == 1 {
		subject = "1 new import deal: " + fresh[0].Title
	}
	if err := n.Mailer.Send(ctx, n.To, subject, html); err != nil {
		return 0, fmt.Errorf("send digest: %w", err)
	}
	n.markSent(ctx, fresh)
	log.Info().Int("count", len(fresh)).Str("to", n.To).Msg("Deal digest sent")
	return len(fresh), nil
}

func (n *Notifier) alreadySent(ctx context.Context, id string) bool {
	if n.Redis == nil {
		return false
	}
	ok, err := n.Redis.SIsMember(ctx, KeySent, id).Result()
	if err != nil {
		log.Warn().Err(err).Msg("alert dedupe lookup failed")
		return false
	}
	return ok
}

func (n *Notifier) markSent(ctx context.Context, items []domain.ListingWithScore) {
	if n.Redis == nil {
		return
	}
	ids := make([]interface{}, len(items))
	for i, it := range items {
		ids[i] = it.ID.String()
	}
	_, err := n.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, KeySent, ids...)
		p.Expire(ctx, KeySent, sentTTL)
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("alert dedupe write failed")
	}
}
