package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gered/go-hl7-fhir/model"
)

func testBundle() model.Resource {
	return model.Resource{
		"resourceType": "Bundle",
		"link": []any{
			map[string]any{"rel": "self", "href": "http://fhir.test/base/Patient/_search"},
			map[string]any{"rel": "next", "href": "http://fhir.test/base?page=2"},
			map[string]any{"rel": "fhir-base", "href": "http://fhir.test/base"},
		},
		"entry": []any{
			map[string]any{
				"id":      "http://fhir.test/base/Patient/1",
				"content": map[string]any{"resourceType": "Patient", "id": "1"},
			},
			map[string]any{
				// deleted-resource history entry: no content
				"id": "http://fhir.test/base/Patient/2",
			},
			map[string]any{
				"id":      "http://fhir.test/base/Patient/3",
				"content": map[string]any{"resourceType": "Patient", "id": "3"},
			},
		},
	}
}

func TestEntriesAndLinks(t *testing.T) {
	bundle := testBundle()

	entries := bundle.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Content != nil {
		t.Errorf("expected deleted entry to have nil content, got %v", entries[1].Content)
	}
	if entries[0].ID != "http://fhir.test/base/Patient/1" {
		t.Errorf("unexpected entry id %q", entries[0].ID)
	}

	if got := bundle.LinkHref("next"); got != "http://fhir.test/base?page=2" {
		t.Errorf("LinkHref(next) = %q", got)
	}
	if got := bundle.LinkHref("previous"); got != "" {
		t.Errorf("LinkHref(previous) = %q, want empty", got)
	}
}

func TestCollectResources(t *testing.T) {
	got := model.CollectResources(testBundle())

	want := []model.Resource{
		{"resourceType": "Patient", "id": "1"},
		{"resourceType": "Patient", "id": "3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CollectResources mismatch (-want +got):\n%s", diff)
	}
}

func TestFindEntry(t *testing.T) {
	bundle := testBundle()

	tests := []struct {
		name      string
		url       string
		wantID    string
		wantFound bool
	}{
		{
			name:      "absolute_url",
			url:       "http://fhir.test/base/Patient/3",
			wantID:    "http://fhir.test/base/Patient/3",
			wantFound: true,
		},
		{
			name:      "relative_url_resolved_against_fhir_base",
			url:       "Patient/1",
			wantID:    "http://fhir.test/base/Patient/1",
			wantFound: true,
		},
		{
			name:      "absent_resource",
			url:       "Patient/999",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, found := model.FindEntry(bundle, tt.url)
			if found != tt.wantFound {
				t.Fatalf("FindEntry(%q) found = %v, want %v", tt.url, found, tt.wantFound)
			}
			if found && entry.ID != tt.wantID {
				t.Errorf("FindEntry(%q) id = %q, want %q", tt.url, entry.ID, tt.wantID)
			}
		})
	}
}

func TestFindEntryWithoutFHIRBase(t *testing.T) {
	bundle := model.Resource{
		"resourceType": "Bundle",
		"entry": []any{
			map[string]any{"id": "http://fhir.test/base/Patient/1"},
		},
	}
	// no fhir-base link: a relative URL cannot be resolved
	if _, found := model.FindEntry(bundle, "Patient/1"); found {
		t.Error("expected no match without a fhir-base link")
	}
}
