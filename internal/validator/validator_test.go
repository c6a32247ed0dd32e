package validator

import (
	"testing"
)

func TestValidateListAttemptsQuery(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		query     ListAttemptsQuery
		wantField string // empty means the query must pass
	}{
		{"empty query passes", ListAttemptsQuery{}, ""},
		{"valid status", ListAttemptsQuery{Status: "completed"}, ""},
		{"in progress status", ListAttemptsQuery{Status: "in_progress"}, ""},
		{"unknown status rejected", ListAttemptsQuery{Status: "abandoned"}, "Status"},
		{"zero page treated as unset", ListAttemptsQuery{Page: 0, Size: 10}, ""},
		{"negative page rejected", ListAttemptsQuery{Page: -1}, "Page"},
		{"oversized page size rejected", ListAttemptsQuery{Size: 500}, "Size"},
		{"unknown sort column rejected", ListAttemptsQuery{SortBy: "user_id"}, "SortBy"},
		{"valid sort", ListAttemptsQuery{SortBy: "score", SortOrder: "desc"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.query)
			if tt.wantField == "" {
				if errs.HasErrors() {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if !errs.HasErrors() {
				t.Fatalf("expected a failure on %s, got none", tt.wantField)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("failed field = %s, want %s", errs[0].Field, tt.wantField)
			}
		})
	}
}
