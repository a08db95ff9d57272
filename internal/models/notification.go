package models

import (
	"time"
)

// Notification 通知记录（对应 notifications 表）
type Notification struct {
	NotificationID   string    `json:"notification_id" db:"notification_id"`
	UserID           string    `json:"user_id" db:"user_id"`
	Type             string    `json:"type" db:"type"` // "critical"
	Message          string    `json:"message" db:"message"`
	RelatedPatientID string    `json:"related_patient_id" db:"related_patient_id"`
	RelatedReadingID string    `json:"related_reading_id" db:"related_reading_id"`
	IsRead           bool      `json:"is_read" db:"is_read"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
