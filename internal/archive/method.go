package archive

import (
	"fmt"

	"github.com/klauspost/compress/zip"
)

// Method identifies the compression backend recorded in an archive entry.
// The set is closed: adding a backend means adding a constant here and
// extending the switches in the worker and the read path.
type Method string

const (
	// Store writes entry bytes uncompressed (ZIP method 0).
	Store Method = "store"
	// Deflate is ZIP method 8 and the default.
	Deflate Method = "deflate"
	// Zstd is ZIP method 93.
	Zstd Method = "zstd"
)

// zstdZipMethod is the Zstandard method id assigned by the ZIP appnote.
const zstdZipMethod = 93

// UnsupportedMethodError reports a compression method outside the closed set.
type UnsupportedMethodError struct {
	Method Method
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported compression method %q (supported: store, deflate, zstd)", string(e.Method))
}

// ParseMethod maps a configuration string to a Method. An empty string
// selects Deflate.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "":
		return Deflate, nil
	case Store, Deflate, Zstd:
		return Method(s), nil
	default:
		return "", &UnsupportedMethodError{Method: Method(s)}
	}
}

func (m Method) String() string {
	return string(m)
}

// zipMethod returns the numeric method id written into entry headers.
func (m Method) zipMethod() (uint16, error) {
	switch m {
	case Store:
		return zip.Store, nil
	case Deflate:
		return zip.Deflate, nil
	case Zstd:
		return zstdZipMethod, nil
	default:
		return 0, &UnsupportedMethodError{Method: m}
	}
}

// methodName maps a numeric method id back to its name for reporting.
// Unknown ids render as their number.
func methodName(id uint16) string {
	switch id {
	case zip.Store:
		return string(Store)
	case zip.Deflate:
		return string(Deflate)
	case zstdZipMethod:
		return string(Zstd)
	default:
		return fmt.Sprintf("method(%d)", id)
	}
}

// MethodName reports the name of a raw ZIP method id, for listings.
func MethodName(id uint16) string {
	return methodName(id)
}
