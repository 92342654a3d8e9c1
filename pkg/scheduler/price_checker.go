package scheduler

import (
	"context"
	"spedify/pkg/history"
	"spedify/pkg/models"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultSchedule = "0 0 */12 * * *"
	checkTimeout    = 2 * time.Minute
)

type Comparer interface {
	Compare(ctx context.Context, detailURL, name string) (*models.ComparisonResult, error)
}

type Store interface {
	Tracked() ([]models.TrackedProduct, error)
	History(productKey string) ([]models.PriceHistoryPoint, error)
	AppendHistory(productKey string, p models.PriceHistoryPoint) error
}

// PriceChecker re-compares every tracked product on a cron schedule and records
// the cheapest listing as a new history point.
type PriceChecker struct {
	cron     *cron.Cron
	schedule string
	comparer Comparer
	store    Store
	tracker  *history.Tracker
	log      *zap.Logger
}

func NewPriceChecker(schedule string, comparer Comparer, store Store, log *zap.Logger) *PriceChecker {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &PriceChecker{
		cron:     cron.New(cron.WithSeconds()),
		schedule: schedule,
		comparer: comparer,
		store:    store,
		tracker:  history.NewTracker(),
		log:      log,
	}
}

// Start schedules the check and runs it once immediately.
func (pc *PriceChecker) Start() error {
	if _, err := pc.cron.AddFunc(pc.schedule, pc.CheckAll); err != nil {
		return err
	}

	go pc.CheckAll()

	pc.cron.Start()
	pc.log.Info("price checker scheduled", zap.String("schedule", pc.schedule))
	return nil
}

func (pc *PriceChecker) Stop() {
	if pc.cron != nil {
		<-pc.cron.Stop().Done()
	}
}

func (pc *PriceChecker) CheckAll() {
	products, err := pc.store.Tracked()
	if err != nil {
		pc.log.Error("failed to list tracked products", zap.Error(err))
		return
	}
	if len(products) == 0 {
		return
	}

	pc.log.Info("checking tracked products", zap.Int("count", len(products)))
	for _, p := range products {
		pc.check(p)
	}
}

func (pc *PriceChecker) check(p models.TrackedProduct) {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	res, err := pc.comparer.Compare(ctx, p.DetailURL, p.Name)
	if err != nil {
		pc.log.Warn("tracked comparison failed", zap.String("product_key", p.ProductKey), zap.Error(err))
		return
	}

	best, ok := Cheapest(res.Entries)
	if !ok {
		pc.log.Info("no priced listing for tracked product", zap.String("product_key", p.ProductKey))
		return
	}

	past, err := pc.store.History(p.ProductKey)
	if err != nil {
		pc.log.Warn("failed to read history", zap.String("product_key", p.ProductKey), zap.Error(err))
		return
	}

	point := pc.tracker.Record(past, best.PriceDisplay, best.Platform)
	if err := pc.store.AppendHistory(p.ProductKey, point); err != nil {
		pc.log.Warn("failed to append history", zap.String("product_key", p.ProductKey), zap.Error(err))
		return
	}
	pc.log.Info("recorded tracked price",
		zap.String("product_key", p.ProductKey),
		zap.String("price", best.PriceDisplay),
		zap.String("platform", best.Platform),
	)
}

// Cheapest returns the lowest positively priced entry. Ties keep the earlier entry.
func Cheapest(entries []models.PlatformPriceEntry) (models.PlatformPriceEntry, bool) {
	var best models.PlatformPriceEntry
	found := false
	for _, e := range entries {
		if e.PriceNumeric <= 0 {
			continue
		}
		if !found || e.PriceNumeric < best.PriceNumeric {
			best = e
			found = true
		}
	}
	return best, found
}
