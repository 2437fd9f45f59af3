package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vigilsec/triage-console/api/schemas"
	"github.com/vigilsec/triage-console/internal/config"
	"github.com/vigilsec/triage-console/internal/report"
)

type fakeStore struct {
	docs []bson.M
}

func (f *fakeStore) Aggregate(context.Context, string, []schemas.Stage) ([]bson.M, error) {
	return f.docs, nil
}

func (f *fakeStore) DayBuckets(_ context.Context, collection string) (schemas.DayBucketResult, error) {
	return schemas.DayBucketResult{Collection: collection}, nil
}

func (f *fakeStore) Count(context.Context, string, bson.D) (int64, error) {
	return 0, nil
}

func (f *fakeStore) FindByID(context.Context, string, string) (*schemas.Finding, error) {
	return &schemas.Finding{}, nil
}

type fakeProvider struct {
	store      schemas.Store
	createErr  error
	cleanedUp  bool
	createDone bool
}

func (p *fakeProvider) Create(context.Context, *config.Config) (schemas.Store, func(), error) {
	p.createDone = true
	if p.createErr != nil {
		return nil, nil, p.createErr
	}
	return p.store, func() { p.cleanedUp = true }, nil
}

func TestRunReportWritesPayloadFile(t *testing.T) {
	provider := &fakeProvider{store: &fakeStore{docs: []bson.M{
		{"_id": bson.M{"CWE": "209", "type": "valid"}, "count": int32(2)},
	}}}
	outputPath := filepath.Join(t.TempDir(), "cwe.json")

	err := runReport(
		context.Background(),
		zap.NewNop(),
		config.NewDefaultConfig(),
		report.Request{Kind: report.KindCWE},
		outputPath,
		provider,
	)
	require.NoError(t, err)
	assert.True(t, provider.createDone)
	assert.True(t, provider.cleanedUp, "the store cleanup must always run")

	raw, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var payload schemas.ChartPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "CWE Report: Issues by CWE", payload.ReportTitle)
	assert.Equal(t, 150, payload.Pixels)
}

func TestRunReportSurfacesGenericErrorOnBadFilter(t *testing.T) {
	provider := &fakeProvider{store: &fakeStore{}}

	err := runReport(
		context.Background(),
		zap.NewNop(),
		config.NewDefaultConfig(),
		report.Request{Kind: report.KindCWE, CWE: "209", Drilldown: "maybe"},
		"",
		provider,
	)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "maybe", "internal detail stays in the log")
}

func TestRunReportFailsWhenStoreUnavailable(t *testing.T) {
	provider := &fakeProvider{createErr: os.ErrDeadlineExceeded}

	err := runReport(
		context.Background(),
		zap.NewNop(),
		config.NewDefaultConfig(),
		report.Request{},
		"",
		provider,
	)
	assert.Error(t, err)
}

func TestParseDayFlag(t *testing.T) {
	got, err := parseDayFlag("2014-01-14")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2014, 1, 14, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseDayFlag("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseDayFlag("14/01/2014")
	assert.Error(t, err)
}

func TestGetConfigFromContextMissing(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
}
