// Package trend builds the issues-by-date series by merging day-bucket job
// results from the static and dynamic finding collections.
package trend

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vigilsec/triage-console/api/schemas"
	"github.com/vigilsec/triage-console/internal/config"
	"github.com/vigilsec/triage-console/internal/store"
)

// Window bounds a trend query. Min is inclusive, Max exclusive. A zero
// bound falls back to the configured epoch or to now.
type Window struct {
	Min time.Time
	Max time.Time
}

// Aggregator runs the day-bucket jobs and joins their results into a
// single four-counter series.
type Aggregator struct {
	store   schemas.Store
	static  string
	dynamic string
	epoch   time.Time
	log     *zap.Logger
}

// New creates a trend aggregator over the two configured collections.
func New(s schemas.Store, cfg *config.Config, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:   s,
		static:  cfg.Database.StaticCollection,
		dynamic: cfg.Database.DynamicCollection,
		epoch:   time.Date(cfg.Report.TrendEpochYear, time.January, 1, 0, 0, 0, 0, time.UTC),
		log:     logger.Named("trend"),
	}
}

// resolve fills unset window bounds: the configured epoch below, now above.
func (a *Aggregator) resolve(w Window) Window {
	if w.Min.IsZero() {
		w.Min = a.epoch
	}
	if w.Max.IsZero() {
		w.Max = time.Now().UTC()
	}
	return w
}

// IssuesByDate runs both per-collection day-bucket jobs concurrently and
// merges them into one chronological series. Each result must be tagged
// with the collection it was requested for; anything else aborts the merge
// rather than risking static counts landing in dynamic columns.
func (a *Aggregator) IssuesByDate(ctx context.Context, w Window) ([]schemas.TrendDay, error) {
	w = a.resolve(w)

	var staticRes, dynamicRes schemas.DayBucketResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		staticRes, err = a.store.DayBuckets(gctx, a.static)
		return err
	})
	g.Go(func() error {
		var err error
		dynamicRes, err = a.store.DayBuckets(gctx, a.dynamic)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if staticRes.Collection != a.static {
		return nil, &schemas.SourceTableError{Collection: staticRes.Collection}
	}
	if dynamicRes.Collection != a.dynamic {
		return nil, &schemas.SourceTableError{Collection: dynamicRes.Collection}
	}

	days := make(map[time.Time]*schemas.TrendDay)
	get := func(day time.Time) *schemas.TrendDay {
		if d, ok := days[day]; ok {
			return d
		}
		d := &schemas.TrendDay{Day: day}
		days[day] = d
		return d
	}

	merge := func(res schemas.DayBucketResult, addNew func(*schemas.TrendDay, int), addReviewed func(*schemas.TrendDay, int)) error {
		for _, bucket := range res.Buckets {
			day, err := store.ParseDayKey(bucket.Key)
			if err != nil {
				return err
			}
			addNew(get(day), bucket.Value.New)
			for _, rev := range bucket.Value.Reviewed {
				revDay, err := store.ParseDayKey(rev.Day)
				if err != nil {
					return err
				}
				addReviewed(get(revDay), rev.Num)
			}
		}
		return nil
	}

	if err := merge(staticRes,
		func(d *schemas.TrendDay, n int) { d.UnreviewedStatic += n },
		func(d *schemas.TrendDay, n int) { d.ReviewedStatic += n },
	); err != nil {
		return nil, err
	}
	if err := merge(dynamicRes,
		func(d *schemas.TrendDay, n int) { d.UnreviewedDynamic += n },
		func(d *schemas.TrendDay, n int) { d.ReviewedDynamic += n },
	); err != nil {
		return nil, err
	}

	series := make([]schemas.TrendDay, 0, len(days))
	for day, d := range days {
		if day.Before(w.Min) || !day.Before(w.Max) {
			continue
		}
		series = append(series, *d)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Day.Before(series[j].Day) })

	a.log.Debug("trend series merged",
		zap.Time("min", w.Min),
		zap.Time("max", w.Max),
		zap.Int("days", len(series)))
	return series, nil
}

// DayCounts holds the four drilldown counters for one calendar day.
type DayCounts struct {
	NewStatic       int64
	NewDynamic      int64
	ReviewedStatic  int64
	ReviewedDynamic int64
}

// IssuesOnDate counts a single day's activity with four concurrent count
// queries. New findings are bounded by the ObjectID range covering
// [day, day+1); reviewed findings by the review date range. Day is
// truncated to UTC midnight before querying.
func (a *Aggregator) IssuesOnDate(ctx context.Context, day time.Time) (DayCounts, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	newFilter := bson.D{{Key: "_id", Value: bson.D{
		{Key: "$gte", Value: primitive.NewObjectIDFromTimestamp(start)},
		{Key: "$lt", Value: primitive.NewObjectIDFromTimestamp(end)},
	}}}
	reviewedFilter := bson.D{{Key: "review.date", Value: bson.D{
		{Key: "$gte", Value: start},
		{Key: "$lt", Value: end},
	}}}

	var counts DayCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts.NewStatic, err = a.store.Count(gctx, a.static, newFilter)
		return err
	})
	g.Go(func() error {
		var err error
		counts.NewDynamic, err = a.store.Count(gctx, a.dynamic, newFilter)
		return err
	})
	g.Go(func() error {
		var err error
		counts.ReviewedStatic, err = a.store.Count(gctx, a.static, reviewedFilter)
		return err
	})
	g.Go(func() error {
		var err error
		counts.ReviewedDynamic, err = a.store.Count(gctx, a.dynamic, reviewedFilter)
		return err
	})
	if err := g.Wait(); err != nil {
		return DayCounts{}, err
	}
	return counts, nil
}
