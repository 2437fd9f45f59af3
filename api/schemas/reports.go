package schemas

import (
	"time"
)

// -- Renderer Payloads --

// Chart sizing: a fixed base offset plus a fixed increment per data row, so
// chart height scales with data volume.
const (
	ChartBasePixels   = 100
	ChartRowPixels    = 50
	TrendReportTitle  = "Trend Data: Issues By Date"
	TrendReportYTitle = "Number of Findings"
)

// ChartPixels computes the pixel height for a chart with rows data rows.
func ChartPixels(rows int) int {
	return ChartBasePixels + ChartRowPixels*rows
}

// ValueField describes one plotted series of a chart payload.
type ValueField struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ChartPayload is the structure handed to the external renderer for
// category-count and trend reports.
type ChartPayload struct {
	CategoryField string       `json:"categoryField"`
	ValueFields   []ValueField `json:"valueFields"`
	Data          interface{}  `json:"data"`
	ReportTitle   string       `json:"reportTitle"`
	YTitle        string       `json:"yTitle"`
	Pixels        int          `json:"pixels"`
}

// CategoryCount is one row of a single-series category report.
type CategoryCount struct {
	CategoryName string `json:"categoryName"`
	Count        int    `json:"type"`
}

// CWECategory is one row of the all-CWEs summary report.
type CWECategory struct {
	CategoryName  string `json:"categoryName"`
	Valid         int    `json:"valid"`
	FalsePositive int    `json:"fp"`
	Total         int    `json:"total"`
}

// TrendPoint is one row of the trend report, keyed by calendar day.
type TrendPoint struct {
	CategoryName      time.Time `json:"categoryName"`
	UnreviewedStatic  int       `json:"unreviewedStatic"`
	UnreviewedDynamic int       `json:"unreviewedDynamic"`
	ReviewedStatic    int       `json:"reviewedStatic"`
	ReviewedDynamic   int       `json:"reviewedDynamic"`
}

// PieSlice is one wedge of a single-day drilldown pie chart.
type PieSlice struct {
	Title string `json:"title"`
	Value int64  `json:"value"`
}

// PiePayload is the renderer structure for drilldown pie charts.
type PiePayload struct {
	Data       []PieSlice `json:"data"`
	Title      string     `json:"title"`
	ValueField string     `json:"valueField"`
	TitleField string     `json:"titleField"`
}

// ReportInfo names one report the dispatcher can run.
type ReportInfo struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

// ReportIndex is the default "list of available reports" view returned when
// the requested report kind is unrecognized or missing.
type ReportIndex struct {
	Reports []ReportInfo `json:"reports"`
}
