package sheetml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wuxianggujun/FastExcel-sub003/internal/opc"
)

const (
	xmlHeader    = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	mainNS       = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	relationNS   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	appNameValue = "FastExcel"
)

// Generate serializes the workbook into its ordered package part set:
// content types first, then relationships, document properties, workbook,
// styles, shared strings, and one part per sheet. A workbook must have at
// least one sheet to form a valid package.
func Generate(wb *Workbook, now time.Time) ([]opc.Part, error) {
	if len(wb.Sheets()) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	table := newStringTable()
	sheetParts := make([]opc.Part, 0, len(wb.Sheets()))
	for i, sheet := range wb.Sheets() {
		sheetParts = append(sheetParts, opc.Part{
			Name:        opc.SheetPartName(i + 1),
			ContentType: opc.WorksheetContentType,
			Content:     generateSheet(sheet, table),
		})
	}

	parts := []opc.Part{
		{Name: opc.PackageRelsName, Content: opc.Relationships(opc.PackageRels())},
		{Name: opc.CorePropsName, ContentType: opc.CorePropsContentType, Content: generateCoreProps(wb, now)},
		{Name: opc.AppPropsName, ContentType: opc.AppPropsContentType, Content: generateAppProps(wb)},
		{Name: opc.WorkbookName, ContentType: opc.WorkbookContentType, Content: generateWorkbook(wb)},
		{Name: opc.WorkbookRelsName, Content: opc.Relationships(opc.WorkbookRels(len(wb.Sheets())))},
		{Name: opc.StylesName, ContentType: opc.StylesContentType, Content: generateStyles()},
		{Name: opc.SharedStringsName, ContentType: opc.SharedStringsContentType, Content: generateSharedStrings(table)},
	}
	parts = append(parts, sheetParts...)

	for _, part := range parts {
		if err := opc.ValidatePartName(part.Name); err != nil {
			return nil, err
		}
	}

	contentTypes := opc.Part{Name: opc.ContentTypesName, Content: opc.ContentTypes(parts)}
	return append([]opc.Part{contentTypes}, parts...), nil
}

func generateWorkbook(wb *Workbook) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<workbook xmlns="` + mainNS + `" xmlns:r="` + relationNS + `">`)
	buf.WriteString(`<sheets>`)
	for i, sheet := range wb.Sheets() {
		buf.WriteString(`<sheet name="` + escapeAttr(sheet.Name()) +
			`" sheetId="` + strconv.Itoa(i+1) +
			`" r:id="rId` + strconv.Itoa(i+1) + `"/>`)
	}
	buf.WriteString(`</sheets>`)
	buf.WriteString(`</workbook>`)
	return buf.Bytes()
}

func generateSheet(sheet *Sheet, table *stringTable) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<worksheet xmlns="` + mainNS + `">`)

	cols, rows := sheet.Dims()
	if cols > 0 {
		buf.WriteString(`<dimension ref="A1:` + CellRef(cols, rows) + `"/>`)
	}

	buf.WriteString(`<sheetData>`)
	for row := 1; row <= rows; row++ {
		rowCells := sheet.cells[row]
		if len(rowCells) == 0 {
			continue
		}
		buf.WriteString(`<row r="` + strconv.Itoa(row) + `">`)
		for col := 1; col <= cols; col++ {
			value, ok := rowCells[col]
			if !ok {
				continue
			}
			writeCell(&buf, CellRef(col, row), value, table)
		}
		buf.WriteString(`</row>`)
	}
	buf.WriteString(`</sheetData>`)
	buf.WriteString(`</worksheet>`)
	return buf.Bytes()
}

func writeCell(buf *bytes.Buffer, ref string, value any, table *stringTable) {
	switch v := value.(type) {
	case string:
		buf.WriteString(`<c r="` + ref + `" t="s"><v>` + strconv.Itoa(table.add(v)) + `</v></c>`)
	case bool:
		b := "0"
		if v {
			b = "1"
		}
		buf.WriteString(`<c r="` + ref + `" t="b"><v>` + b + `</v></c>`)
	case int:
		buf.WriteString(`<c r="` + ref + `"><v>` + strconv.Itoa(v) + `</v></c>`)
	case float64:
		buf.WriteString(`<c r="` + ref + `"><v>` + strconv.FormatFloat(v, 'G', -1, 64) + `</v></c>`)
	}
}

func generateSharedStrings(table *stringTable) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<sst xmlns="` + mainNS +
		`" count="` + strconv.Itoa(table.count) +
		`" uniqueCount="` + strconv.Itoa(len(table.items)) + `">`)
	for _, item := range table.items {
		if needsSpacePreserve(item) {
			buf.WriteString(`<si><t xml:space="preserve">` + escapeText(item) + `</t></si>`)
		} else {
			buf.WriteString(`<si><t>` + escapeText(item) + `</t></si>`)
		}
	}
	buf.WriteString(`</sst>`)
	return buf.Bytes()
}

// generateStyles emits the minimal style sheet every part set carries: one
// font, the two mandatory fills, one border, and one cell format.
func generateStyles() []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<styleSheet xmlns="` + mainNS + `">`)
	buf.WriteString(`<fonts count="1"><font><sz val="11"/><name val="Calibri"/></font></fonts>`)
	buf.WriteString(`<fills count="2"><fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill></fills>`)
	buf.WriteString(`<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>`)
	buf.WriteString(`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>`)
	buf.WriteString(`<cellXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/></cellXfs>`)
	buf.WriteString(`</styleSheet>`)
	return buf.Bytes()
}

func generateCoreProps(wb *Workbook, now time.Time) []byte {
	stamp := now.UTC().Format(time.RFC3339)
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/"` +
		` xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	if wb.Title != "" {
		buf.WriteString(`<dc:title>` + escapeText(wb.Title) + `</dc:title>`)
	}
	if wb.Creator != "" {
		buf.WriteString(`<dc:creator>` + escapeText(wb.Creator) + `</dc:creator>`)
	}
	buf.WriteString(`<dcterms:created xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:created>`)
	buf.WriteString(`<dcterms:modified xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:modified>`)
	buf.WriteString(`</cp:coreProperties>`)
	return buf.Bytes()
}

func generateAppProps(wb *Workbook) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`)
	buf.WriteString(`<Application>` + appNameValue + `</Application>`)
	buf.WriteString(`<Worksheets>` + strconv.Itoa(len(wb.Sheets())) + `</Worksheets>`)
	buf.WriteString(`</Properties>`)
	return buf.Bytes()
}

func needsSpacePreserve(s string) bool {
	return s != strings.TrimSpace(s)
}

func escapeText(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func escapeAttr(s string) string {
	return escapeText(s)
}
