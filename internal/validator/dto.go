package validator

import "time"

// ListAttemptsQuery is the query-string shape for listing attempts.
type ListAttemptsQuery struct {
	Status    string     `form:"status" validate:"omitempty,attempt_status"`
	TestID    uint       `form:"test_id"`
	DateFrom  *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo    *time.Time `form:"date_to" time_format:"2006-01-02"`
	Page      int        `form:"page" validate:"omitempty,min=1"`
	Size      int        `form:"size" validate:"omitempty,min=1,max=100"`
	SortBy    string     `form:"sort_by" validate:"omitempty,oneof=created_at completed_at score"`
	SortOrder string     `form:"sort_order" validate:"omitempty,oneof=asc desc"`
}
