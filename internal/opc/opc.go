// Package opc models the Open Packaging Conventions surface of an .xlsx
// container: part names, content types, and package relationships. It shapes
// bytes only; archive I/O belongs to internal/archive.
package opc

import (
	"fmt"
	"strings"
)

// Well-known part names of the workbook package.
const (
	ContentTypesName  = "[Content_Types].xml"
	PackageRelsName   = "_rels/.rels"
	WorkbookName      = "xl/workbook.xml"
	WorkbookRelsName  = "xl/_rels/workbook.xml.rels"
	StylesName        = "xl/styles.xml"
	SharedStringsName = "xl/sharedStrings.xml"
	CorePropsName     = "docProps/core.xml"
	AppPropsName      = "docProps/app.xml"
)

// Content types of the workbook part set.
const (
	WorkbookContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	WorksheetContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	StylesContentType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	SharedStringsContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	CorePropsContentType     = "application/vnd.openxmlformats-package.core-properties+xml"
	AppPropsContentType      = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	relsContentType          = "application/vnd.openxmlformats-package.relationships+xml"
	xmlContentType           = "application/xml"
)

// Part is one package part: its name inside the container, its declared
// content type, and its serialized bytes.
type Part struct {
	Name        string
	ContentType string
	Content     []byte
}

// SheetPartName returns the part name of the n-th worksheet, 1-based.
func SheetPartName(n int) string {
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", n)
}

// ValidatePartName checks name against the package naming rules: non-empty,
// no leading or trailing slash, forward slashes only, no empty segments, no
// "." or ".." segments. Case is preserved, not folded.
func ValidatePartName(name string) error {
	if name == "" {
		return fmt.Errorf("part name is empty")
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("part name %q must not start with a slash", name)
	}
	if strings.HasSuffix(name, "/") {
		return fmt.Errorf("part name %q must not end with a slash", name)
	}
	if strings.Contains(name, "\\") {
		return fmt.Errorf("part name %q must use forward slashes", name)
	}

	for _, segment := range strings.Split(name, "/") {
		switch segment {
		case "":
			return fmt.Errorf("part name %q has an empty segment", name)
		case ".", "..":
			return fmt.Errorf("part name %q has a relative segment", name)
		}
	}

	return nil
}
