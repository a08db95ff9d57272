package models

import (
	"time"
)

// BloodPressure is an optional paired channel on a reading.
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// VitalReading is one capture of a patient's vital signs as handed to the
// classifier. Heart rate, SpO2 and temperature are the required channels;
// blood pressure and respiratory rate are evaluated only by the display
// tiering, never by the critical classifier.
type VitalReading struct {
	HeartRate       float64        `json:"heart_rate"`  // bpm
	SpO2            float64        `json:"spo2"`        // percent
	Temperature     float64        `json:"temperature"` // Celsius
	BloodPressure   *BloodPressure `json:"blood_pressure,omitempty"`
	RespiratoryRate *float64       `json:"respiratory_rate,omitempty"` // breaths/min
}

// SeverityVerdict is the critical classifier's output for one reading.
type SeverityVerdict struct {
	IsCritical bool     `json:"is_critical"`
	Conditions []string `json:"conditions"`
}

// StoredReading is a persisted reading (vital_readings table).
type StoredReading struct {
	ReadingID       string    `json:"reading_id" db:"reading_id"`
	PatientID       string    `json:"patient_id" db:"patient_id"`
	HeartRate       float64   `json:"heart_rate" db:"heart_rate"`
	SpO2            float64   `json:"spo2" db:"spo2"`
	Temperature     float64   `json:"temperature" db:"temperature"`
	Systolic        *float64  `json:"systolic,omitempty" db:"systolic"`
	Diastolic       *float64  `json:"diastolic,omitempty" db:"diastolic"`
	RespiratoryRate *float64  `json:"respiratory_rate,omitempty" db:"respiratory_rate"`
	Source          string    `json:"source" db:"source"` // "monitor" or "manual"
	IsCritical      bool      `json:"is_critical" db:"is_critical"`
	Conditions      []string  `json:"conditions" db:"conditions"` // JSONB
	RecordedAt      time.Time `json:"recorded_at" db:"recorded_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Vitals converts a stored reading back to classifier input.
func (r *StoredReading) Vitals() VitalReading {
	v := VitalReading{
		HeartRate:       r.HeartRate,
		SpO2:            r.SpO2,
		Temperature:     r.Temperature,
		RespiratoryRate: r.RespiratoryRate,
	}
	if r.Systolic != nil && r.Diastolic != nil {
		v.BloodPressure = &BloodPressure{Systolic: *r.Systolic, Diastolic: *r.Diastolic}
	}
	return v
}
