// Package issues collapses raw per-scan finding rows into logical issues.
// One logical issue is the set of every finding sharing an identity; the
// grouping contract here is consumed both by the pipeline builder (as the
// datastore group stage) and by the in-memory reference implementation used
// to shape and verify results.
package issues

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vigilsec/triage-console/api/schemas"
)

// GroupKey is the identity sub-document of the group stage. Every field of
// the composite identity participates, so two findings land in the same
// bucket only when they are the same logical issue.
func GroupKey() bson.D {
	return bson.D{
		{Key: "vtype", Value: "$vtype"},
		{Key: "ln", Value: "$ln"},
		{Key: "method", Value: "$method"},
		{Key: "file", Value: "$file_path"},
		{Key: "conf", Value: "$conf"},
		{Key: "sev", Value: "$sev"},
		{Key: "app", Value: "$application_name"},
		{Key: "caller", Value: "$caller"},
		{Key: "project_name", Value: "$project_name"},
	}
}

// GroupAccumulators is the accumulator contract of the group stage: earliest
// scan date as first-seen, largest raw _id as the canonical update marker,
// and one pushed slot per reviewed row for status, false-positive reason and
// ticket number. Push order is row order, so element 0 of the status list is
// the authoritative current disposition.
func GroupAccumulators() bson.D {
	return bson.D{
		{Key: "date", Value: bson.D{{Key: "$min", Value: "$date_scanned"}}},
		{Key: "updateVal", Value: bson.D{{Key: "$max", Value: "$_id"}}},
		{Key: "reviewStatus", Value: bson.D{{Key: "$push", Value: "$review.status"}}},
		{Key: "reviewUser", Value: bson.D{{Key: "$min", Value: "$review.user"}}},
		{Key: "reviewDate", Value: bson.D{{Key: "$min", Value: "$review.date"}}},
		{Key: "fpreason", Value: bson.D{{Key: "$push", Value: "$review.false_positive_reason"}}},
		{Key: "vreason", Value: bson.D{{Key: "$push", Value: "$review.ticket_number"}}},
	}
}

// GroupStage assembles the full deduplication stage for a pipeline.
func GroupStage() schemas.Stage {
	return schemas.Group(GroupKey(), GroupAccumulators())
}

// Collapse is the in-memory reference implementation of the grouping
// contract. It collapses raw rows from a single collection into one
// LogicalIssue per identity; callers must never mix rows from different
// collections in one call. FirstSeen and CanonicalID are order-independent;
// the accumulated lists preserve row order. Confidence and severity are part
// of the identity key, so rows disagreeing on them never share a bucket.
func Collapse(rows []schemas.Finding) []schemas.LogicalIssue {
	buckets := make(map[schemas.Identity]*schemas.LogicalIssue)
	order := make([]schemas.Identity, 0, len(rows))

	for _, row := range rows {
		key := schemas.IdentityOf(&row)
		issue, seen := buckets[key]
		if !seen {
			issue = &schemas.LogicalIssue{
				Identity:    key,
				FirstSeen:   row.DateScanned,
				CanonicalID: row.ID,
			}
			buckets[key] = issue
			order = append(order, key)
		} else {
			if row.DateScanned.Before(issue.FirstSeen) {
				issue.FirstSeen = row.DateScanned
			}
			if compareObjectIDs(row.ID, issue.CanonicalID) > 0 {
				issue.CanonicalID = row.ID
			}
		}

		if row.Review != nil {
			issue.ReviewStatuses = append(issue.ReviewStatuses, row.Review.Status)
			issue.FalsePositiveReasons = append(issue.FalsePositiveReasons, row.Review.FalsePositiveReason)
			issue.TicketNumbers = append(issue.TicketNumbers, row.Review.TicketNumber)
			if issue.ReviewUser == "" || row.Review.User < issue.ReviewUser {
				issue.ReviewUser = row.Review.User
			}
			if issue.ReviewDate.IsZero() || row.Review.Date.Before(issue.ReviewDate) {
				issue.ReviewDate = row.Review.Date
			}
		}
	}

	out := make([]schemas.LogicalIssue, 0, len(order))
	for _, key := range order {
		out = append(out, *buckets[key])
	}
	return out
}

// SortByFilePath orders issues by file path ascending, mirroring the
// pipeline's deterministic sort stage so in-memory results are reproducible.
func SortByFilePath(list []schemas.LogicalIssue) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Identity.FilePath < list[j].Identity.FilePath
	})
}

// FromGrouped decodes one raw grouped result document into a LogicalIssue.
func FromGrouped(doc bson.M) (schemas.LogicalIssue, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return schemas.LogicalIssue{}, err
	}
	var issue schemas.LogicalIssue
	if err := bson.Unmarshal(raw, &issue); err != nil {
		return schemas.LogicalIssue{}, err
	}
	return issue, nil
}

// FromGroupedAll decodes a full grouped result set.
func FromGroupedAll(docs []bson.M) ([]schemas.LogicalIssue, error) {
	out := make([]schemas.LogicalIssue, 0, len(docs))
	for _, doc := range docs {
		issue, err := FromGrouped(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, nil
}

func compareObjectIDs(a, b primitive.ObjectID) int {
	for i := 0; i < len(a); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
