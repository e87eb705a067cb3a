package models

import "time"

// AuditLog rows are append-only.
type AuditLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Operation string `gorm:"size:50;not null;index" json:"operation"`
	WorkerID  *uint  `gorm:"index" json:"worker_id"`
	AreaID    *uint  `json:"area_id"`
	Actor     string `gorm:"size:100" json:"actor"`

	BeforeSummary string `gorm:"type:text" json:"before_summary"`
	AfterSummary  string `gorm:"type:text" json:"after_summary"`
	ChangeSummary string `gorm:"type:text" json:"change_summary"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
