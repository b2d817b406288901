package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treatylens/internal/actuarial"
	"treatylens/internal/config"
	"treatylens/internal/currency"
	"treatylens/internal/exposure"
	"treatylens/internal/history"
	"treatylens/internal/ingest"
)

var (
	claimsCSV = []byte("fecha;pagado;reserva;causa\n" +
		"2021-03-10;500000;0;Incendio\n" +
		"2022-07-22;0;800000;Inundación\n" +
		"2023-01-05;300000;100000;Robo\n")

	exposureCSV = []byte("ubicacion;suma asegurada\n" +
		"Planta Norte;60000000\n" +
		"Bodega Central;40000000\n")
)

func newTestService(t *testing.T, rateBody string) *AnalysisService {
	return newTestServiceWithHistory(t, rateBody, nil)
}

func newTestServiceWithHistory(t *testing.T, rateBody string, repo *history.Repository) *AnalysisService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(rateBody))
	}))
	t.Cleanup(srv.Close)

	rates := currency.NewService(config.RatesConfig{
		PrimaryURL: srv.URL,
		Timeout:    2 * time.Second,
		Fallbacks:  config.DefaultRateFallbacks,
	}, logger)

	return NewAnalysisService(
		ingest.NewConsolidator(logger),
		exposure.NewResolver(1e9, logger),
		actuarial.NewEngine(1.5, logger),
		rates,
		repo,
		logger,
	)
}

func TestAnalyze_FullPipeline(t *testing.T) {
	svc := newTestService(t, `{"rates":{"COP":4000}}`)

	resp, err := svc.Analyze(context.Background(), AnalysisRequest{
		Insured:      "Textiles de Colombia SA",
		ClaimFiles:   []ingest.File{{Name: "siniestros.csv", Data: claimsCSV}},
		ExposureFile: ingest.File{Name: "tiv.csv", Data: exposureCSV},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AnalysisID)
	assert.Equal(t, "Textiles de Colombia SA", resp.Insured)
	assert.Equal(t, 3, resp.Ingest.TotalClaims)
	assert.Empty(t, resp.Ingest.FailedFiles)
	assert.Equal(t, ingest.LayoutGeneric, resp.Ingest.Layouts["siniestros.csv"])

	assert.Equal(t, "value_column", resp.TIV.Strategy)
	assert.Equal(t, 1e8, resp.TIV.Total)

	require.NotNil(t, resp.Analytics)
	require.NotNil(t, resp.Analytics.BurningCost)
	assert.True(t, resp.Analytics.BurningCost.Computable)
	// 1.7M over 3 years against 100M: 5.67 per mille.
	require.NotNil(t, resp.Analytics.BurningCost.RatePerMille)
	assert.InDelta(t, 5.6667, *resp.Analytics.BurningCost.RatePerMille, 0.001)

	assert.Equal(t, "COP", resp.Currency.Code)
	assert.Equal(t, currency.SourcePrimary, resp.Currency.Source)
	assert.InDelta(t, 25000.0, resp.Currency.TIVUSD, 0.0001)
}

func TestAnalyze_RequiresExposureFile(t *testing.T) {
	svc := newTestService(t, `{"rates":{"COP":4000}}`)

	_, err := svc.Analyze(context.Background(), AnalysisRequest{
		Insured:    "Acme",
		ClaimFiles: []ingest.File{{Name: "siniestros.csv", Data: claimsCSV}},
	})
	assert.Error(t, err)
}

func TestAnalyze_FailedClaimFileDegradesGracefully(t *testing.T) {
	svc := newTestService(t, `{"rates":{"COP":4000}}`)

	resp, err := svc.Analyze(context.Background(), AnalysisRequest{
		Insured: "Acme",
		ClaimFiles: []ingest.File{
			{Name: "broken.xlsx", Data: []byte{0xFF, 0xFE}},
			{Name: "ok.csv", Data: claimsCSV},
		},
		ExposureFile: ingest.File{Name: "tiv.csv", Data: exposureCSV},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"broken.xlsx"}, resp.Ingest.FailedFiles)
	assert.Equal(t, 3, resp.Ingest.TotalClaims)
}

func TestAnalyze_HistoryOutageDegradesToNoHistory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// A malformed DSN makes every query fail without reaching a server.
	repo, err := history.New(config.HistoryConfig{
		DSN:           "not a connection string",
		LookbackYears: 5,
		QueryTimeout:  time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	svc := newTestServiceWithHistory(t, `{"rates":{"COP":4000}}`, repo)

	resp, err := svc.Analyze(context.Background(), AnalysisRequest{
		Insured:      "Textiles de Colombia SA",
		ClaimFiles:   []ingest.File{{Name: "siniestros.csv", Data: claimsCSV}},
		ExposureFile: ingest.File{Name: "tiv.csv", Data: exposureCSV},
	})
	require.NoError(t, err)

	assert.True(t, resp.Ingest.HistoryUnavailable)
	assert.Zero(t, resp.Ingest.HistoryClaims)
	assert.Equal(t, 3, resp.Ingest.TotalClaims)
	require.NotNil(t, resp.Analytics)
	assert.True(t, resp.Analytics.BurningCost.Computable)
}

func TestAnalyze_CurrencyDetectionAndOverride(t *testing.T) {
	svc := newTestService(t, `{"rates":{"MXN":18,"COP":4000}}`)

	detected, err := svc.Analyze(context.Background(), AnalysisRequest{
		Insured:      "Conservas La Costeña",
		ExposureFile: ingest.File{Name: "tiv.csv", Data: exposureCSV},
	})
	require.NoError(t, err)
	assert.Equal(t, "MXN", detected.Currency.Code)

	overridden, err := svc.Analyze(context.Background(), AnalysisRequest{
		Insured:      "Conservas La Costeña",
		Currency:     "COP",
		ExposureFile: ingest.File{Name: "tiv.csv", Data: exposureCSV},
	})
	require.NoError(t, err)
	assert.Equal(t, "COP", overridden.Currency.Code)
}

func TestAnalyze_ReferenceOverride(t *testing.T) {
	svc := newTestService(t, `{"rates":{"COP":4000}}`)

	resp, err := svc.Analyze(context.Background(), AnalysisRequest{
		Insured:           "Acme",
		ReferencePerMille: 10,
		ClaimFiles:        []ingest.File{{Name: "siniestros.csv", Data: claimsCSV}},
		ExposureFile:      ingest.File{Name: "tiv.csv", Data: exposureCSV},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Analytics.BurningCost)
	assert.Equal(t, 10.0, resp.Analytics.BurningCost.ReferencePerMille)
}
