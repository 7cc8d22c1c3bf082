package model

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/iancoleman/strcase"
)

// ResourceLocator identifies a resource instance by type, id and optional
// version, independent of the server it lives on.
//
// Type always holds the canonical CamelCase FHIR resource-type name
// (e.g. "DiagnosticReport"); use [ResourceLocator.KeywordType] for the
// lowercase-hyphenated form.
type ResourceLocator struct {
	Type    string
	ID      string
	Version string
}

// RelativePath renders the locator as a relative resource URL:
// "Type/id" or "Type/id/_history/version".
func (l ResourceLocator) RelativePath() string {
	if l.Version != "" {
		return fmt.Sprintf("%s/%s/_history/%s", l.Type, l.ID, l.Version)
	}
	return fmt.Sprintf("%s/%s", l.Type, l.ID)
}

// KeywordType returns the resource-type name in lowercase-hyphenated form,
// e.g. "diagnostic-report" for "DiagnosticReport".
func (l ResourceLocator) KeywordType() string {
	return KeywordizeType(l.Type)
}

// KeywordizeType converts a canonical CamelCase resource-type name to the
// lowercase-hyphenated keyword form. The conversion is lossless for valid
// FHIR resource-type names; [CanonicalTypeName] is its inverse.
func KeywordizeType(name string) string {
	return strcase.ToKebab(name)
}

// CanonicalTypeName converts a resource-type name in either form to the
// canonical CamelCase name used on the wire.
func CanonicalTypeName(name string) string {
	return strcase.ToCamel(name)
}

// IsAbsoluteURL reports whether the value parses as a fully-qualified URL.
// Blank input is an error; a value that merely fails to parse is not.
func IsAbsoluteURL(value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, fmt.Errorf("url must be a non-empty string")
	}
	u, err := url.Parse(value)
	if err != nil {
		return false, nil
	}
	return u.Scheme != "" && u.Host != "", nil
}

// ParseRelativeURL parses a relative resource URL of the form "Type/id" or
// "Type/id/_history/version". Any query string is ignored. Returns nil when
// the path has any other shape.
func ParseRelativeURL(relativeURL string) *ResourceLocator {
	path, _, _ := strings.Cut(relativeURL, "?")
	segments := splitPath(path)
	switch len(segments) {
	case 2:
		return &ResourceLocator{Type: segments[0], ID: segments[1]}
	case 4:
		if segments[2] != "_history" {
			return nil
		}
		return &ResourceLocator{Type: segments[0], ID: segments[1], Version: segments[3]}
	default:
		return nil
	}
}

// ParseAbsoluteURL parses a fully-qualified resource URL, recognizing the
// trailing "Type/id" or "Type/id/_history/version" path segments and ignoring
// any leading server-root segments. Returns nil when the URL does not address
// a resource.
func ParseAbsoluteURL(absoluteURL string) *ResourceLocator {
	u, err := url.Parse(absoluteURL)
	if err != nil {
		return nil
	}
	segments := splitPath(u.Path)
	n := len(segments)
	if n >= 4 && segments[n-2] == "_history" {
		return &ResourceLocator{Type: segments[n-4], ID: segments[n-3], Version: segments[n-1]}
	}
	if n >= 2 {
		return &ResourceLocator{Type: segments[n-2], ID: segments[n-1]}
	}
	return nil
}

// ParseURL parses either form of resource URL, dispatching on whether the
// value is fully qualified.
func ParseURL(resourceURL string) *ResourceLocator {
	abs, err := IsAbsoluteURL(resourceURL)
	if err != nil {
		return nil
	}
	if abs {
		return ParseAbsoluteURL(resourceURL)
	}
	return ParseRelativeURL(resourceURL)
}

// ToRelativeURL reduces an absolute resource URL to its relative form.
// Returns "" on blank or unrecognizable input.
func ToRelativeURL(absoluteURL string) string {
	if strings.TrimSpace(absoluteURL) == "" {
		return ""
	}
	locator := ParseAbsoluteURL(absoluteURL)
	if locator == nil {
		return ""
	}
	return locator.RelativePath()
}

// ToAbsoluteURL joins a server base URL and a relative resource URL.
// Returns "" when either part is blank.
func ToAbsoluteURL(baseURL, relativeURL string) string {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(relativeURL) == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(relativeURL, "/")
}

func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
