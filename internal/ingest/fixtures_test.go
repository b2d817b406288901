package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type sheetDef struct {
	name string
	rows [][]string
}

// workbookBytes builds an in-memory xlsx with the given sheets in order.
func workbookBytes(t *testing.T, sheets ...sheetDef) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sheet.name))
		} else {
			_, err := f.NewSheet(sheet.name)
			require.NoError(t, err)
		}
		for r, row := range sheet.rows {
			for c, cell := range row {
				if cell == "" {
					continue
				}
				addr, err := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellStr(sheet.name, addr, cell))
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// blankRows pads a table so the real header lands on the given zero-based
// row offset.
func blankRows(n int, rows ...[]string) [][]string {
	out := make([][]string, n)
	return append(out, rows...)
}
