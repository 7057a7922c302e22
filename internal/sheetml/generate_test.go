package sheetml

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxianggujun/FastExcel-sub003/internal/opc"
)

func buildTestWorkbook(t *testing.T) *Workbook {
	t.Helper()

	wb := NewWorkbook()
	wb.Title = "Quarterly"
	wb.Creator = "tester"

	data, err := wb.AddSheet("Data")
	require.NoError(t, err)
	require.NoError(t, data.SetCell("A1", "name"))
	require.NoError(t, data.SetCell("B1", "count"))
	require.NoError(t, data.SetCell("A2", "widgets"))
	require.NoError(t, data.SetCell("B2", 17))
	require.NoError(t, data.SetCell("C2", 2.5))
	require.NoError(t, data.SetCell("D2", true))

	summary, err := wb.AddSheet("Summary")
	require.NoError(t, err)
	require.NoError(t, summary.SetCell("A1", "name"))

	return wb
}

func generateParts(t *testing.T) []opc.Part {
	t.Helper()

	parts, err := Generate(buildTestWorkbook(t), time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return parts
}

func partByName(t *testing.T, parts []opc.Part, name string) opc.Part {
	t.Helper()

	part, ok := lo.Find(parts, func(p opc.Part) bool { return p.Name == name })
	require.Truef(t, ok, "part %s missing", name)
	return part
}

func TestGenerate_EmitsFullPartSet(t *testing.T) {
	parts := generateParts(t)

	names := lo.Map(parts, func(p opc.Part, _ int) string { return p.Name })
	assert.Equal(t, []string{
		opc.ContentTypesName,
		opc.PackageRelsName,
		opc.CorePropsName,
		opc.AppPropsName,
		opc.WorkbookName,
		opc.WorkbookRelsName,
		opc.StylesName,
		opc.SharedStringsName,
		opc.SheetPartName(1),
		opc.SheetPartName(2),
	}, names)

	for _, part := range parts {
		assert.NotEmptyf(t, part.Content, "part %s has no content", part.Name)
	}
}

func TestGenerate_RequiresASheet(t *testing.T) {
	_, err := Generate(NewWorkbook(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sheets")
}

func TestGenerate_WorkbookListsSheetsInOrder(t *testing.T) {
	parts := generateParts(t)

	var doc struct {
		Sheets []struct {
			Name    string `xml:"name,attr"`
			SheetID int    `xml:"sheetId,attr"`
		} `xml:"sheets>sheet"`
	}
	require.NoError(t, xml.Unmarshal(partByName(t, parts, opc.WorkbookName).Content, &doc))

	require.Len(t, doc.Sheets, 2)
	assert.Equal(t, "Data", doc.Sheets[0].Name)
	assert.Equal(t, 1, doc.Sheets[0].SheetID)
	assert.Equal(t, "Summary", doc.Sheets[1].Name)
	assert.Equal(t, 2, doc.Sheets[1].SheetID)
}

type sheetDoc struct {
	Dimension struct {
		Ref string `xml:"ref,attr"`
	} `xml:"dimension"`
	Rows []struct {
		R     int `xml:"r,attr"`
		Cells []struct {
			R string `xml:"r,attr"`
			T string `xml:"t,attr"`
			V string `xml:"v"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func TestGenerate_SheetCellsTypedCorrectly(t *testing.T) {
	parts := generateParts(t)

	var doc sheetDoc
	require.NoError(t, xml.Unmarshal(partByName(t, parts, opc.SheetPartName(1)).Content, &doc))

	assert.Equal(t, "A1:D2", doc.Dimension.Ref)
	require.Len(t, doc.Rows, 2)

	row2 := doc.Rows[1]
	require.Len(t, row2.Cells, 4)
	assert.Equal(t, "s", row2.Cells[0].T, "string cells reference the shared table")
	assert.Equal(t, "", row2.Cells[1].T, "numeric cells carry no type attribute")
	assert.Equal(t, "17", row2.Cells[1].V)
	assert.Equal(t, "2.5", row2.Cells[2].V)
	assert.Equal(t, "b", row2.Cells[3].T)
	assert.Equal(t, "1", row2.Cells[3].V)
}

func TestGenerate_SharedStringsDeduplicated(t *testing.T) {
	parts := generateParts(t)

	var doc struct {
		Count       int      `xml:"count,attr"`
		UniqueCount int      `xml:"uniqueCount,attr"`
		Items       []string `xml:"si>t"`
	}
	require.NoError(t, xml.Unmarshal(partByName(t, parts, opc.SharedStringsName).Content, &doc))

	// "name" appears on both sheets but is stored once.
	assert.Equal(t, 4, doc.Count)
	assert.Equal(t, 3, doc.UniqueCount)
	assert.Equal(t, []string{"name", "count", "widgets"}, doc.Items)
}

func TestGenerate_SharedStringEscapingAndWhitespace(t *testing.T) {
	wb := NewWorkbook()
	sheet, err := wb.AddSheet("Data")
	require.NoError(t, err)
	require.NoError(t, sheet.SetCell("A1", "a < b & c"))
	require.NoError(t, sheet.SetCell("A2", "  padded  "))

	parts, err := Generate(wb, time.Now())
	require.NoError(t, err)

	raw := string(partByName(t, parts, opc.SharedStringsName).Content)
	assert.Contains(t, raw, "a &lt; b &amp; c")
	assert.Contains(t, raw, `xml:space="preserve"`)

	var doc struct {
		Items []string `xml:"si>t"`
	}
	require.NoError(t, xml.Unmarshal(partByName(t, parts, opc.SharedStringsName).Content, &doc))
	assert.Equal(t, []string{"a < b & c", "  padded  "}, doc.Items)
}

func TestGenerate_CoreProps(t *testing.T) {
	parts := generateParts(t)

	raw := string(partByName(t, parts, opc.CorePropsName).Content)
	assert.Contains(t, raw, "<dc:title>Quarterly</dc:title>")
	assert.Contains(t, raw, "<dc:creator>tester</dc:creator>")
	assert.Contains(t, raw, "2026-08-01T12:00:00Z")
}

func TestGenerate_ContentTypesCoverEveryTypedPart(t *testing.T) {
	parts := generateParts(t)

	raw := string(partByName(t, parts, opc.ContentTypesName).Content)
	for _, part := range parts[1:] {
		if part.ContentType == "" {
			continue
		}
		assert.Containsf(t, raw, `"/`+part.Name+`"`, "missing override for %s", part.Name)
	}
}
