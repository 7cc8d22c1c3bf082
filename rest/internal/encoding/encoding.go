// Package encoding decodes and encodes opaque FHIR JSON payloads and matches
// FHIR media types.
package encoding

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gered/go-hl7-fhir/model"
)

// Media types used on the wire. The json+fhir spelling is what this client
// sends; the fhir+json spelling is accepted from servers as well.
const (
	MediaTypeFHIRJSON = "application/json+fhir"
	MediaTypeForm     = "application/x-www-form-urlencoded"
)

var fhirJSONMediaTypes = []string{
	"application/json+fhir",
	"application/fhir+json",
	"application/json",
	"text/json",
}

// IsFHIRJSON reports whether a Content-Type header value indicates a FHIR
// JSON payload. Media-type parameters (charset etc.) are ignored.
func IsFHIRJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// fall back to a prefix match on the raw header
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)
	for _, t := range fhirJSONMediaTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// DecodeResource decodes a single JSON object payload.
func DecodeResource(r io.Reader) (model.Resource, error) {
	var v model.Resource
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("error parsing json body: %w", err)
	}
	return v, nil
}

// Encode writes v as JSON without HTML escaping.
func Encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
