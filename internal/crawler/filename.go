package crawler

import (
	"mime"
	"net/url"
	"regexp"
	"strings"
)

// Kind identifies the resource types a crawl persists.
type Kind string

// Persistable content kinds. Everything else is skipped.
const (
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
)

// Ext returns the file extension for the kind, including the dot.
func (k Kind) Ext() string {
	return "." + string(k)
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

const maxFilenameLen = 200

// ClassifyContentType parses a Content-Type header value and reports whether
// the resource is one the crawl persists. The returned media type is the
// canonical lower-cased form with parameters stripped.
func ClassifyContentType(header string) (Kind, string, bool) {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", "", false
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return KindHTML, mediaType, true
	case "application/pdf":
		return KindPDF, mediaType, true
	default:
		return "", mediaType, false
	}
}

// DeriveFilename maps a source URL to the object name its content is stored
// under. The name is a pure function of the URL's path and query so that
// revisiting the same URL within one run overwrites rather than duplicates:
// every byte outside [a-zA-Z0-9._-] becomes an underscore, the result is
// capped at 200 bytes, and the extension for kind is appended unless the
// name already carries it in any case.
func DeriveFilename(u *url.URL, kind Kind) string {
	name := strings.TrimPrefix(u.RequestURI(), "/")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}

	if ext := kind.Ext(); !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name
}
