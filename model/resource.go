// Package model holds the opaque JSON data model used by this client.
//
// Resources are not mapped onto generated Go structs. A [Resource] is a plain
// decoded JSON object; the only structure this package relies on is the
// resourceType discriminator, the bundle entry/link layout and the contained
// resource list. Everything else passes through untouched.
package model

// Resource is a decoded FHIR JSON payload.
//
// A value is a bundle if and only if its resourceType is "Bundle"; it is a
// resource if and only if it carries any other non-empty resourceType. The two
// predicates are mutually exclusive and together cover every valid payload.
type Resource map[string]any

// ResourceType returns the resourceType field, or "" if absent.
func (r Resource) ResourceType() string {
	t, _ := r["resourceType"].(string)
	return t
}

// ID returns the logical id of the resource, or "" if absent.
func (r Resource) ID() string {
	id, _ := r["id"].(string)
	return id
}

// IsResource reports whether r is a single FHIR resource (not a bundle).
func (r Resource) IsResource() bool {
	t := r.ResourceType()
	return t != "" && t != "Bundle"
}

// IsBundle reports whether r is a FHIR bundle.
func (r Resource) IsBundle() bool {
	return r.ResourceType() == "Bundle"
}

// Contained resolves an internal contained-resource reference against the
// resource's contained list. The reference may carry the leading "#".
// Returns nil if there is no matching contained resource.
func (r Resource) Contained(ref string) Resource {
	if len(ref) > 0 && ref[0] == '#' {
		ref = ref[1:]
	}
	if ref == "" {
		return nil
	}
	contained, _ := r["contained"].([]any)
	for _, c := range contained {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := m["id"].(string); id == ref {
			return Resource(m)
		}
	}
	return nil
}
