package report

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vigilsec/triage-console/api/schemas"
)

// asInt normalizes the numeric types the driver hands back for count
// accumulators.
func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// groupRow pulls the category value and count out of one grouped result
// document shaped as {_id: {type: <value>}, count: <n>}.
func groupRow(doc bson.M) (string, int) {
	var category string
	if id, ok := doc["_id"].(bson.M); ok {
		category = fmt.Sprint(id["type"])
	}
	return category, asInt(doc["count"])
}

// flattenLines collapses any newline characters in a stored free-text
// value to single spaces so multi-line reasons render as one category.
func flattenLines(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// categoryRows shapes grouped results into single-series rows, merging the
// categories that become identical once their newlines are flattened.
// Input order is preserved, so server-side sorting carries through.
func categoryRows(docs []bson.M) []schemas.CategoryCount {
	rows := make([]schemas.CategoryCount, 0, len(docs))
	index := make(map[string]int)

	for _, doc := range docs {
		category, count := groupRow(doc)
		category = flattenLines(category)
		if i, seen := index[category]; seen {
			rows[i].Count += count
			continue
		}
		index[category] = len(rows)
		rows = append(rows, schemas.CategoryCount{CategoryName: category, Count: count})
	}
	return rows
}

// barChart assembles the renderer payload for a category-count report.
func barChart(title, yTitle string, fields []schemas.ValueField, data interface{}, rows int) *schemas.ChartPayload {
	return &schemas.ChartPayload{
		CategoryField: "categoryName",
		ValueFields:   fields,
		Data:          data,
		ReportTitle:   title,
		YTitle:        yTitle,
		Pixels:        schemas.ChartPixels(rows),
	}
}
