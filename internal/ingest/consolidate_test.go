package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treatylens/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func datePtr(year, month, day int) *time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestConsolidate_MergesFilesAndHistory(t *testing.T) {
	c := NewConsolidator(discardLogger())

	fileData := workbookBytes(t, sheetDef{
		name: "Hoja1",
		rows: [][]string{
			{"fecha", "pagado", "reserva"},
			{"2023-06-01", "100000", "0"},
			{"2021-01-15", "900000", "100000"},
		},
	})
	history := []domain.ClaimRecord{
		{Reference: "H-1", OccurredAt: datePtr(2022, 3, 10), Incurred: 400000, Paid: 400000, Source: domain.ClaimSourceHistory},
	}

	result := c.Consolidate(context.Background(), []File{{Name: "claims.xlsx", Data: fileData}}, history)

	require.Len(t, result.Claims, 3)
	assert.Empty(t, result.FailedFiles)
	assert.Equal(t, LayoutGeneric, result.Layouts["claims.xlsx"])

	// Newest losses first.
	assert.Equal(t, 2023, result.Claims[0].Year)
	assert.Equal(t, "H-1", result.Claims[1].Reference)
	assert.Equal(t, 2021, result.Claims[2].Year)
}

func TestConsolidate_DropsNonInformativeClaims(t *testing.T) {
	c := NewConsolidator(discardLogger())

	history := []domain.ClaimRecord{
		{Reference: "KEEP", Incurred: 1000, Year: 2022},
		{Reference: "ZERO", Incurred: 0, Year: 2022},
		{Reference: "NEGATIVE", Incurred: -500, Year: 2022},
	}

	result := c.Consolidate(context.Background(), nil, history)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "KEEP", result.Claims[0].Reference)
}

func TestConsolidate_BackfillsYearFromDate(t *testing.T) {
	c := NewConsolidator(discardLogger())

	history := []domain.ClaimRecord{
		{Reference: "H-1", OccurredAt: datePtr(2020, 11, 5), Incurred: 1000},
	}

	result := c.Consolidate(context.Background(), nil, history)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, 2020, result.Claims[0].Year)
}

func TestConsolidate_FailedFileIsSkippedNotFatal(t *testing.T) {
	c := NewConsolidator(discardLogger())

	history := []domain.ClaimRecord{{Reference: "H-1", Incurred: 1000, Year: 2022}}
	files := []File{{Name: "broken.xlsx", Data: []byte{0xFF, 0xFE, 0x00}}}

	result := c.Consolidate(context.Background(), files, history)
	assert.Equal(t, []string{"broken.xlsx"}, result.FailedFiles)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "H-1", result.Claims[0].Reference)
}

func TestConsolidate_EmptySubmissionIsValid(t *testing.T) {
	c := NewConsolidator(discardLogger())

	result := c.Consolidate(context.Background(), nil, nil)
	assert.Empty(t, result.Claims)
	assert.Empty(t, result.FailedFiles)
}

func TestConsolidate_NilDatesSortLast(t *testing.T) {
	c := NewConsolidator(discardLogger())

	history := []domain.ClaimRecord{
		{Reference: "NO-DATE", Incurred: 100, Year: 2019},
		{Reference: "DATED", OccurredAt: datePtr(2018, 1, 1), Incurred: 100},
	}

	result := c.Consolidate(context.Background(), nil, history)
	require.Len(t, result.Claims, 2)
	assert.Equal(t, "DATED", result.Claims[0].Reference)
	assert.Equal(t, "NO-DATE", result.Claims[1].Reference)
}
