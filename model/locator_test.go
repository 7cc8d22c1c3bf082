package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gered/go-hl7-fhir/model"
)

func TestParseRelativeURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want *model.ResourceLocator
	}{
		{
			name: "type_and_id",
			url:  "Patient/1234",
			want: &model.ResourceLocator{Type: "Patient", ID: "1234"},
		},
		{
			name: "versioned",
			url:  "Patient/1234/_history/2",
			want: &model.ResourceLocator{Type: "Patient", ID: "1234", Version: "2"},
		},
		{
			name: "query_string_stripped",
			url:  "Patient/1234?_format=json",
			want: &model.ResourceLocator{Type: "Patient", ID: "1234"},
		},
		{
			name: "single_segment",
			url:  "Patient",
			want: nil,
		},
		{
			name: "three_segments",
			url:  "Patient/1234/_history",
			want: nil,
		},
		{
			name: "four_segments_without_history",
			url:  "Patient/1234/version/2",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.ParseRelativeURL(tt.url)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseRelativeURL(%q) mismatch (-want +got):\n%s", tt.url, diff)
			}
		})
	}
}

func TestParseAbsoluteURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want *model.ResourceLocator
	}{
		{
			name: "plain",
			url:  "http://fhir.test/base/Patient/1234",
			want: &model.ResourceLocator{Type: "Patient", ID: "1234"},
		},
		{
			name: "versioned",
			url:  "http://fhir.test/base/Patient/1234/_history/2",
			want: &model.ResourceLocator{Type: "Patient", ID: "1234", Version: "2"},
		},
		{
			name: "deep_server_root",
			url:  "https://host/some/deep/root/Observation/42",
			want: &model.ResourceLocator{Type: "Observation", ID: "42"},
		},
		{
			name: "root_only",
			url:  "http://fhir.test/base",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.ParseAbsoluteURL(tt.url)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAbsoluteURL(%q) mismatch (-want +got):\n%s", tt.url, diff)
			}
		})
	}
}

func TestParseURLDispatch(t *testing.T) {
	rel := model.ParseURL("Patient/1")
	abs := model.ParseURL("http://fhir.test/base/Patient/1")
	if diff := cmp.Diff(rel, abs); diff != "" {
		t.Errorf("relative and absolute parses disagree (-rel +abs):\n%s", diff)
	}
	if model.ParseURL("   ") != nil {
		t.Error("expected nil for blank input")
	}
}

func TestIsAbsoluteURL(t *testing.T) {
	if _, err := model.IsAbsoluteURL(""); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := model.IsAbsoluteURL("  "); err == nil {
		t.Error("expected error for blank input")
	}

	abs, err := model.IsAbsoluteURL("http://fhir.test/base")
	if err != nil || !abs {
		t.Errorf("IsAbsoluteURL(http url) = %v, %v", abs, err)
	}
	abs, err = model.IsAbsoluteURL("Patient/1")
	if err != nil || abs {
		t.Errorf("IsAbsoluteURL(relative) = %v, %v", abs, err)
	}
}

func TestURLRoundTrip(t *testing.T) {
	base := "http://fhir.test/base"
	relative := "Patient/1234/_history/2"

	absolute := model.ToAbsoluteURL(base, relative)
	if absolute != "http://fhir.test/base/Patient/1234/_history/2" {
		t.Fatalf("ToAbsoluteURL = %q", absolute)
	}
	// round trip: abs -> rel -> abs reconstructs an equivalent locator
	back := model.ToAbsoluteURL(base, model.ToRelativeURL(absolute))
	if back != absolute {
		t.Errorf("round trip produced %q, want %q", back, absolute)
	}

	if model.ToRelativeURL("") != "" {
		t.Error("expected empty result for blank input")
	}
	if model.ToAbsoluteURL(base, "") != "" {
		t.Error("expected empty result for blank relative url")
	}
	if model.ToAbsoluteURL("", relative) != "" {
		t.Error("expected empty result for blank base url")
	}
}

func TestTypeNameRendering(t *testing.T) {
	tests := []struct {
		canonical string
		keyword   string
	}{
		{"Patient", "patient"},
		{"DiagnosticReport", "diagnostic-report"},
		{"MedicationStatement", "medication-statement"},
	}

	for _, tt := range tests {
		t.Run(tt.canonical, func(t *testing.T) {
			if got := model.KeywordizeType(tt.canonical); got != tt.keyword {
				t.Errorf("KeywordizeType(%q) = %q, want %q", tt.canonical, got, tt.keyword)
			}
			if got := model.CanonicalTypeName(tt.keyword); got != tt.canonical {
				t.Errorf("CanonicalTypeName(%q) = %q, want %q", tt.keyword, got, tt.canonical)
			}
			// canonical input is a fixed point
			if got := model.CanonicalTypeName(tt.canonical); got != tt.canonical {
				t.Errorf("CanonicalTypeName(%q) = %q, want unchanged", tt.canonical, got)
			}
		})
	}

	locator := model.ResourceLocator{Type: "DiagnosticReport", ID: "7"}
	if got := locator.KeywordType(); got != "diagnostic-report" {
		t.Errorf("KeywordType() = %q", got)
	}
	if got := locator.RelativePath(); got != "DiagnosticReport/7" {
		t.Errorf("RelativePath() = %q", got)
	}
}
