package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"groupbuy-service/internal/lifecycle"
	"groupbuy-service/internal/models"
	"groupbuy-service/internal/redisclient"
	"groupbuy-service/internal/store"
	"groupbuy-service/internal/util"
)

const defaultTopCategories = 5

// Reporter computes read-only statistics from store snapshots. It never
// mutates deal or ledger state; every figure comes from a single consistent
// snapshot, so a half-applied commit is never observable here.
type Reporter struct {
	store         store.Store
	redis         *redisclient.Client
	trendingLimit int
	cacheTTL      time.Duration
	logger        *zap.Logger
}

// NewReporter creates a new aggregation reporter. A nil Redis client
// disables dashboard caching.
func NewReporter(st store.Store, redis *redisclient.Client, trendingLimit int, cacheTTL time.Duration) *Reporter {
	if trendingLimit <= 0 {
		trendingLimit = 10
	}
	return &Reporter{
		store:         st,
		redis:         redis,
		trendingLimit: trendingLimit,
		cacheTTL:      cacheTTL,
		logger:        util.GetLogger(),
	}
}

// CategoryStats is one row of the top-categories ranking.
type CategoryStats struct {
	Category  string `json:"category"`
	Deals     int    `json:"deals"`
	Committed int    `json:"committed_quantity"`
}

// DashboardStats is the platform-wide rollup.
type DashboardStats struct {
	ActiveDeals       int             `json:"active_deals"`
	CommittedQuantity int             `json:"committed_quantity"`
	TotalSavings      float64         `json:"total_savings"`
	ActiveCampaigns   int             `json:"active_campaigns"`
	TopCategories     []CategoryStats `json:"top_categories"`
}

// TrendingDeal is one row of the trending ranking.
type TrendingDeal struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	CommittedQuantity  int     `json:"committed_quantity"`
	TargetQuantity     int     `json:"target_quantity"`
	ProgressPercentage float64 `json:"progress_percentage"`
	SavingsPercentage  float64 `json:"savings_percentage"`
}

// counted reports whether a deal participates in aggregate totals. Fulfilled
// deals stay in the books; draft, pending, expired and closed deals do not.
func counted(d models.Deal) bool {
	return d.State == lifecycle.StateActive || d.State == lifecycle.StateFulfilled
}

// Dashboard computes the platform rollup, serving from the Redis cache when
// a fresh copy exists.
func (r *Reporter) Dashboard(ctx context.Context) (*DashboardStats, error) {
	ctx, span := util.StartSpan(ctx, "Reporter.Dashboard")
	defer span.End()

	if r.redis != nil {
		if payload, err := r.redis.GetDashboard(ctx); err == nil && payload != nil {
			var cached DashboardStats
			if err := json.Unmarshal(payload, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	deals, err := r.store.SnapshotDeals(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{TopCategories: []CategoryStats{}}
	totalSavings := decimal.Zero

	type categoryAgg struct {
		stats CategoryStats
		order int
	}
	categories := make(map[string]*categoryAgg)

	for _, d := range deals {
		if d.State == lifecycle.StateActive {
			stats.ActiveDeals++
			if d.CommittedQuantity > 0 {
				stats.ActiveCampaigns++
			}
		}
		if !counted(d) {
			continue
		}

		stats.CommittedQuantity += d.CommittedQuantity
		totalSavings = totalSavings.Add(
			d.RetailPrice.Sub(d.GroupPrice).Mul(decimal.NewFromInt(int64(d.CommittedQuantity))))

		if d.Category == "" {
			continue
		}
		agg, ok := categories[d.Category]
		if !ok {
			agg = &categoryAgg{stats: CategoryStats{Category: d.Category}, order: len(categories)}
			categories[d.Category] = agg
		}
		agg.stats.Deals++
		agg.stats.Committed += d.CommittedQuantity
	}

	stats.TotalSavings, _ = totalSavings.Round(2).Float64()

	ranked := lo.Values(categories)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].stats.Committed != ranked[j].stats.Committed {
			return ranked[i].stats.Committed > ranked[j].stats.Committed
		}
		if ranked[i].stats.Deals != ranked[j].stats.Deals {
			return ranked[i].stats.Deals > ranked[j].stats.Deals
		}
		return ranked[i].order < ranked[j].order
	})
	if len(ranked) > defaultTopCategories {
		ranked = ranked[:defaultTopCategories]
	}
	stats.TopCategories = lo.Map(ranked, func(agg *categoryAgg, _ int) CategoryStats {
		return agg.stats
	})

	if r.redis != nil && r.cacheTTL > 0 {
		if payload, err := json.Marshal(stats); err == nil {
			if err := r.redis.CacheDashboard(ctx, payload, r.cacheTTL); err != nil {
				r.logger.Warn("Failed to cache dashboard", zap.Error(err))
			}
		}
	}

	return stats, nil
}

// Trending ranks counted deals by committed quantity, descending. Ties keep
// insertion order.
func (r *Reporter) Trending(ctx context.Context, limit int) ([]TrendingDeal, error) {
	ctx, span := util.StartSpan(ctx, "Reporter.Trending")
	defer span.End()

	if limit <= 0 {
		limit = r.trendingLimit
	}

	deals, err := r.store.SnapshotDeals(ctx)
	if err != nil {
		return nil, err
	}

	active := lo.Filter(deals, func(d models.Deal, _ int) bool { return counted(d) })
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CommittedQuantity > active[j].CommittedQuantity
	})
	if len(active) > limit {
		active = active[:limit]
	}

	return lo.Map(active, func(d models.Deal, _ int) TrendingDeal {
		return TrendingDeal{
			ID:                 d.ID,
			Name:               d.Name,
			CommittedQuantity:  d.CommittedQuantity,
			TargetQuantity:     d.TargetQuantity,
			ProgressPercentage: d.ProgressPercentage(),
			SavingsPercentage:  d.SavingsPercentage,
		}
	}), nil
}

// Progress returns a deal's committed quantity against its target, serving
// from the Redis mirror when present and falling back to the store.
func (r *Reporter) Progress(ctx context.Context, dealID int64) (redisclient.Progress, error) {
	if r.redis != nil {
		if p, ok, err := r.redis.GetProgress(ctx, dealID); err == nil && ok {
			return p, nil
		}
	}

	deal, err := r.store.GetDeal(ctx, dealID)
	if err != nil {
		return redisclient.Progress{}, err
	}
	return redisclient.Progress{
		Committed: deal.CommittedQuantity,
		Target:    deal.TargetQuantity,
		Fulfilled: deal.State == lifecycle.StateFulfilled,
	}, nil
}
