package models

import (
	"time"
)

type Test struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	CourseID    uint    `json:"course_id" gorm:"not null;index"`
	Title       string  `json:"title" gorm:"not null;size:200"`
	Description *string `json:"description" gorm:"type:text"`

	// Availability
	IsActive     bool `json:"is_active" gorm:"default:false;index"`
	PassingScore int  `json:"passing_score" gorm:"default:0"`
	Duration     *int `json:"duration"` // minutes; nil means untimed

	// Metadata
	CreatedBy string    `json:"created_by" gorm:"index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:TestID"`
}
