package model

// Link relations used for paging. The fhir-base relation is not part of this
// set and survives bundle aggregation.
const (
	LinkRelNext     = "next"
	LinkRelPrevious = "previous"
	LinkRelFirst    = "first"
	LinkRelLast     = "last"
	LinkRelFHIRBase = "fhir-base"
)

// Entry is a read-only view of a bundle entry.
//
// Content is nil for deleted-resource history entries.
type Entry struct {
	ID      string
	Content Resource
}

// Link is a read-only view of a bundle link.
type Link struct {
	Rel  string
	Href string
}

// Entries returns the bundle's entries in order.
func (r Resource) Entries() []Entry {
	raw, _ := r["entry"].([]any)
	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		entry := Entry{}
		entry.ID, _ = m["id"].(string)
		if content, ok := m["content"].(map[string]any); ok {
			entry.Content = Resource(content)
		}
		entries = append(entries, entry)
	}
	return entries
}

// Links returns the bundle's links in order.
func (r Resource) Links() []Link {
	raw, _ := r["link"].([]any)
	links := make([]Link, 0, len(raw))
	for _, l := range raw {
		m, ok := l.(map[string]any)
		if !ok {
			continue
		}
		rel, _ := m["rel"].(string)
		href, _ := m["href"].(string)
		links = append(links, Link{Rel: rel, Href: href})
	}
	return links
}

// LinkHref returns the href of the first link with the given relation,
// or "" if the bundle carries no such link.
func (r Resource) LinkHref(rel string) string {
	for _, l := range r.Links() {
		if l.Rel == rel {
			return l.Href
		}
	}
	return ""
}

// CollectResources projects the contained resource out of every bundle entry.
// Entries without content (deleted-resource history entries) are dropped;
// order is preserved.
func CollectResources(bundle Resource) []Resource {
	var resources []Resource
	for _, e := range bundle.Entries() {
		if e.Content != nil {
			resources = append(resources, e.Content)
		}
	}
	return resources
}

// FindEntry looks up the bundle entry identified by the given absolute or
// relative resource URL. A relative URL is resolved against the bundle's own
// fhir-base link. The second return value reports whether a match was found.
func FindEntry(bundle Resource, resourceURL string) (Entry, bool) {
	abs, err := IsAbsoluteURL(resourceURL)
	if err != nil {
		return Entry{}, false
	}
	if !abs {
		base := bundle.LinkHref(LinkRelFHIRBase)
		resourceURL = ToAbsoluteURL(base, resourceURL)
		if resourceURL == "" {
			return Entry{}, false
		}
	}
	for _, e := range bundle.Entries() {
		if e.ID == resourceURL {
			return e, true
		}
	}
	return Entry{}, false
}
