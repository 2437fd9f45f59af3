package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/vigilsec/triage-console/api/schemas"
)

// DayKey renders a timestamp as the job's calendar-day key. The format is
// year-month-day without zero padding, matching the stored review dates.
func DayKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// ParseDayKey converts a day key back to a UTC midnight timestamp.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation("2006-1-2", key, time.UTC)
}

// MapFindingToDay is the map step of the day-bucketing job. Every finding
// emits one new-finding contribution keyed by the creation day embedded in
// its identifier; a reviewed finding additionally carries one reviewed
// contribution keyed by the review's own date.
func MapFindingToDay(f *schemas.Finding) (string, schemas.DayValue) {
	value := schemas.DayValue{New: 1, Reviewed: []schemas.ReviewedOnDay{}}
	if f.Review != nil {
		value.Reviewed = append(value.Reviewed, schemas.ReviewedOnDay{
			Day: DayKey(f.Review.Date),
			Num: 1,
		})
	}
	return DayKey(f.ID.Timestamp()), value
}

// ReduceDayValues merges same-day contributions additively. It is
// associative and commutative, so inputs may arrive pre-partitioned and in
// any order; a row carrying several review entries still sums correctly.
func ReduceDayValues(_ string, values []schemas.DayValue) schemas.DayValue {
	out := schemas.DayValue{Reviewed: []schemas.ReviewedOnDay{}}
	index := make(map[string]int)

	for _, v := range values {
		out.New += v.New
		for _, rev := range v.Reviewed {
			if i, seen := index[rev.Day]; seen {
				out.Reviewed[i].Num += rev.Num
			} else {
				index[rev.Day] = len(out.Reviewed)
				out.Reviewed = append(out.Reviewed, rev)
			}
		}
	}
	return out
}

// sortedBuckets flattens the accumulator into a chronologically ordered
// bucket list. Keys that fail to parse sort last in input order; they can
// only come from a corrupted accumulator, not from caller input.
func sortedBuckets(acc map[string]schemas.DayValue) []schemas.DayBucket {
	buckets := make([]schemas.DayBucket, 0, len(acc))
	for key, value := range acc {
		buckets = append(buckets, schemas.DayBucket{Key: key, Value: value})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		ti, erri := ParseDayKey(buckets[i].Key)
		tj, errj := ParseDayKey(buckets[j].Key)
		if erri != nil || errj != nil {
			return errj != nil && erri == nil
		}
		return ti.Before(tj)
	})
	return buckets
}
