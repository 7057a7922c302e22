package opc

import (
	"bytes"
	"fmt"
)

// Relationship types used by the workbook package.
const (
	OfficeDocumentRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	CorePropsRelType      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	AppPropsRelType       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	WorksheetRelType      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	StylesRelType         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	SharedStringsRelType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
)

// Relationship is one edge of a relationship part. Target is relative to the
// part the relationship file belongs to.
type Relationship struct {
	ID     string
	Type   string
	Target string
}

// Relationships serializes a .rels part from the given edges, in input order.
func Relationships(rels []Relationship) []byte {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, rel := range rels {
		buf.WriteString(`<Relationship Id="` + escapeAttr(rel.ID) +
			`" Type="` + escapeAttr(rel.Type) +
			`" Target="` + escapeAttr(rel.Target) + `"/>`)
	}
	buf.WriteString(`</Relationships>`)
	return buf.Bytes()
}

// PackageRels builds the package-level _rels/.rels edges pointing to the
// workbook and the document properties.
func PackageRels() []Relationship {
	return []Relationship{
		{ID: "rId1", Type: OfficeDocumentRelType, Target: WorkbookName},
		{ID: "rId2", Type: CorePropsRelType, Target: CorePropsName},
		{ID: "rId3", Type: AppPropsRelType, Target: AppPropsName},
	}
}

// WorkbookRels builds the workbook-level relationship edges: one per sheet,
// then styles and shared strings. Sheet rIds are rId1..rIdN in sheet order;
// callers referencing sheets from workbook.xml rely on that numbering.
func WorkbookRels(sheetCount int) []Relationship {
	rels := make([]Relationship, 0, sheetCount+2)
	for i := 1; i <= sheetCount; i++ {
		rels = append(rels, Relationship{
			ID:     fmt.Sprintf("rId%d", i),
			Type:   WorksheetRelType,
			Target: fmt.Sprintf("worksheets/sheet%d.xml", i),
		})
	}
	rels = append(rels,
		Relationship{ID: fmt.Sprintf("rId%d", sheetCount+1), Type: StylesRelType, Target: "styles.xml"},
		Relationship{ID: fmt.Sprintf("rId%d", sheetCount+2), Type: SharedStringsRelType, Target: "sharedStrings.xml"},
	)
	return rels
}
