package paper

import (
	"testing"

	"paper-portal/backend/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestChangesValidate(t *testing.T) {
	cases := []struct {
		name    string
		changes Changes
		field   string
	}{
		{"empty", Changes{}, "changes"},
		{"blank title", Changes{Title: ptr("   ")}, "title"},
		{"blank arxiv", Changes{ArxivID: ptr("")}, "arxiv_id"},
		{"zero category", Changes{CategoryID: ptr(uint(0))}, "category_id"},
		{"ftp pdf", Changes{PDFURL: ptr("ftp://example.com/a.pdf")}, "pdf_url"},
	}
	for _, tc := range cases {
		err := tc.changes.Validate()
		if !apperr.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		verr := err.(*apperr.ValidationError)
		if verr.Field != tc.field {
			t.Fatalf("%s: expected field %s, got %s", tc.name, tc.field, verr.Field)
		}
	}

	ok := Changes{Title: ptr(" New title "), PDFURL: ptr("https://arxiv.org/pdf/1706.03762"), CategoryID: ptr(uint(3))}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid changes, got %v", err)
	}
	cols := ok.Columns()
	if len(cols) != 3 || cols["title"] != "New title" || cols["category_id"] != uint(3) {
		t.Fatalf("unexpected columns: %#v", cols)
	}
}
