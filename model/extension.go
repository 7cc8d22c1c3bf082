package model

// ExtensionValueKind names the typed value[x] field found on an extension
// element.
type ExtensionValueKind string

const (
	ExtensionInteger   ExtensionValueKind = "integer"
	ExtensionDecimal   ExtensionValueKind = "decimal"
	ExtensionDateTime  ExtensionValueKind = "dateTime"
	ExtensionDate      ExtensionValueKind = "date"
	ExtensionInstant   ExtensionValueKind = "instant"
	ExtensionString    ExtensionValueKind = "string"
	ExtensionURI       ExtensionValueKind = "uri"
	ExtensionBoolean   ExtensionValueKind = "boolean"
	ExtensionCode      ExtensionValueKind = "code"
	ExtensionCoding    ExtensionValueKind = "coding"
	ExtensionReference ExtensionValueKind = "reference"
	// ExtensionNested marks an extension carrying child extensions instead
	// of a typed value.
	ExtensionNested ExtensionValueKind = "extension"
)

var extensionValueFields = []struct {
	field string
	kind  ExtensionValueKind
}{
	{"valueInteger", ExtensionInteger},
	{"valueDecimal", ExtensionDecimal},
	{"valueDateTime", ExtensionDateTime},
	{"valueDate", ExtensionDate},
	{"valueInstant", ExtensionInstant},
	{"valueString", ExtensionString},
	{"valueUri", ExtensionURI},
	{"valueBoolean", ExtensionBoolean},
	{"valueCode", ExtensionCode},
	{"valueCoding", ExtensionCoding},
	{"valueResource", ExtensionReference},
	{"valueReference", ExtensionReference},
	{"extension", ExtensionNested},
}

// ExtensionValue extracts the typed value carried by an extension element.
// The set of recognized value[x] kinds is closed; an extension carrying none
// of them yields ok == false rather than an error, so callers can skip shapes
// they do not understand.
func ExtensionValue(ext Resource) (value any, kind ExtensionValueKind, ok bool) {
	for _, f := range extensionValueFields {
		if v, present := ext[f.field]; present {
			return v, f.kind, true
		}
	}
	return nil, "", false
}
