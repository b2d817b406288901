package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectClaimsLayout_FilenameMarkers(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     Layout
	}{
		{"costena siniestros", "Siniestros La Costeña 2024.xlsx", LayoutCostenaClaims},
		{"costena ascii", "costena_siniestros.xlsx", LayoutCostenaClaims},
		{"conagua loss run", "CONAGUA loss run 2023.xlsx", LayoutConaguaClaims},
		{"costena without siniestro marker", "costena_tiv.xlsx", LayoutGeneric},
		{"unrelated", "portfolio.xlsx", LayoutGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Unparseable bytes force the decision onto the filename.
			assert.Equal(t, tt.want, DetectClaimsLayout([]byte("not a workbook"), tt.filename))
		})
	}
}

func TestDetectClaimsLayout_SheetStructure(t *testing.T) {
	tests := []struct {
		name   string
		sheets []sheetDef
		want   Layout
	}{
		{
			"grupo i sheet",
			[]sheetDef{{name: "GRUPO I", rows: [][]string{{"x"}}}},
			LayoutGroupI,
		},
		{
			"sin_agosto sheet",
			[]sheetDef{{name: "SIN_AGOSTO", rows: [][]string{{"x"}}}},
			LayoutCostenaClaims,
		},
		{
			"detail plus resume",
			[]sheetDef{
				{name: "Detail", rows: [][]string{{"x"}}},
				{name: "Resume", rows: [][]string{{"x"}}},
			},
			LayoutConaguaClaims,
		},
		{
			"detail without resume",
			[]sheetDef{{name: "Detail", rows: [][]string{{"x"}}}},
			LayoutGeneric,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := workbookBytes(t, tt.sheets...)
			assert.Equal(t, tt.want, DetectClaimsLayout(data, "submission.xlsx"))
		})
	}
}
