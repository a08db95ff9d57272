package models

import (
	"time"
)

// Patient 患者信息（对应 patients 表）
type Patient struct {
	PatientID string    `json:"patient_id" db:"patient_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	MRN       string    `json:"mrn" db:"mrn"` // medical record number
	Ward      *string   `json:"ward,omitempty" db:"ward"`
	BedLabel  *string   `json:"bed_label,omitempty" db:"bed_label"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CareAssignment 护理分配（对应 care_assignments 表）
// An active assignment links a nurse (and optionally a supervising doctor)
// to a patient; alert fan-out targets are derived from these rows.
type CareAssignment struct {
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	PatientID    string    `json:"patient_id" db:"patient_id"`
	NurseID      string    `json:"nurse_id" db:"nurse_id"`
	DoctorID     *string   `json:"doctor_id,omitempty" db:"doctor_id"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	AssignedAt   time.Time `json:"assigned_at" db:"assigned_at"`
}

// CaseInfo 在诊病例（对应 cases 表）
type CaseInfo struct {
	CaseID    string    `json:"case_id" db:"case_id"`
	PatientID string    `json:"patient_id" db:"patient_id"`
	DoctorID  string    `json:"doctor_id" db:"doctor_id"`
	Status    string    `json:"status" db:"status"` // "open" or "closed"
	OpenedAt  time.Time `json:"opened_at" db:"opened_at"`
}

// Monitor 床旁监护仪（对应 monitors 表）
// Serial number is the identity the device publishes under on MQTT.
type Monitor struct {
	MonitorID    string `json:"monitor_id" db:"monitor_id"`
	SerialNumber string `json:"serial_number" db:"serial_number"`
	PatientID    string `json:"patient_id" db:"patient_id"`
	IsActive     bool   `json:"is_active" db:"is_active"`
}
