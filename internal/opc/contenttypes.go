package opc

import (
	"bytes"
	"encoding/xml"
	"path"
	"sort"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// ContentTypes serializes the [Content_Types].xml part for the given part
// list. Extensions carry defaults (rels, xml); every part with a content type
// that its extension default does not already cover gets an Override, in
// input order.
func ContentTypes(parts []Part) []byte {
	defaults := map[string]string{
		"rels": relsContentType,
		"xml":  xmlContentType,
	}

	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	buf.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)

	exts := make([]string, 0, len(defaults))
	for ext := range defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		buf.WriteString(`<Default Extension="` + ext + `" ContentType="` + defaults[ext] + `"/>`)
	}

	for _, part := range parts {
		if part.ContentType == "" || part.Name == ContentTypesName {
			continue
		}
		ext := strings.TrimPrefix(path.Ext(part.Name), ".")
		if defaults[ext] == part.ContentType {
			continue
		}
		buf.WriteString(`<Override PartName="/` + escapeAttr(part.Name) +
			`" ContentType="` + escapeAttr(part.ContentType) + `"/>`)
	}

	buf.WriteString(`</Types>`)
	return buf.Bytes()
}

// escapeAttr escapes a string for use inside a double-quoted XML attribute.
func escapeAttr(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
