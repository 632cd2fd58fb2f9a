package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"groupbuy-service/internal/models"
	"groupbuy-service/internal/util"
)

// candidate is one entry of the discovery catalog. Discovery is a simulated
// market scan: it proposes draft deals from a fixed candidate list; real
// price discovery is outside this service.
type candidate struct {
	name     string
	category string
	retail   int64
	group    int64
}

var catalog = []candidate{
	{"Industrial Grade Solar Inverter", "Electronics", 1200, 850},
	{"Bulk HEPA Filter Nodes", "Home", 45, 22},
	{"Autonomous Irrigation Node", "Outdoors", 850, 600},
	{"Protocol-Grade Medical Supplies", "Healthcare", 250, 140},
	{"Preserved Strategic Grain Cluster", "Food", 500, 300},
}

// Finder produces draft deals for admin review. Everything it creates
// carries the automated-discovery origin and waits in pending approval;
// nothing goes live without a human decision.
type Finder struct {
	registry      *Registry
	defaultTarget int
	logger        *zap.Logger
}

// NewFinder creates a new deal finder.
func NewFinder(registry *Registry, defaultTarget int) *Finder {
	if defaultTarget <= 0 {
		defaultTarget = 100
	}
	return &Finder{
		registry:      registry,
		defaultTarget: defaultTarget,
		logger:        util.GetLogger(),
	}
}

// Run performs one discovery pass, creating 2-3 candidate deals. Returns
// the number of drafts created.
func (f *Finder) Run(ctx context.Context) (int, error) {
	util.SourcingRunsTotal.Inc()

	picks := rand.Perm(len(catalog))[:2+rand.Intn(2)]

	found := 0
	for _, i := range picks {
		c := catalog[i]
		_, err := f.registry.CreateDeal(ctx, CreateDealInput{
			Name:           c.name,
			Description:    fmt.Sprintf("Sourced: arbitrage opportunity found in the %s sector.", c.category),
			Category:       c.category,
			RetailPrice:    decimal.NewFromInt(c.retail),
			GroupPrice:     decimal.NewFromInt(c.group),
			TargetQuantity: f.defaultTarget,
			Origin:         models.OriginDiscovery,
		})
		if err != nil {
			f.logger.Error("Failed to create discovered deal",
				zap.String("name", c.name),
				zap.Error(err))
			continue
		}
		found++
		util.SourcingDealsFound.Inc()
	}

	f.logger.Info("Sourcing run complete", zap.Int("deals_found", found))
	return found, nil
}
