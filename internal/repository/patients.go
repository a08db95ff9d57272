package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mediwatch-vitals/internal/models"

	"go.uber.org/zap"
)

// PatientsRepository 患者仓库
type PatientsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPatientsRepository 创建患者仓库
func NewPatientsRepository(db *sql.DB, logger *zap.Logger) *PatientsRepository {
	return &PatientsRepository{
		db:     db,
		logger: logger,
	}
}

// GetPatientByID 根据 patient_id 获取患者信息
func (r *PatientsRepository) GetPatientByID(ctx context.Context, patientID string) (*models.Patient, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT
			patient_id, full_name, mrn, ward, bed_label, created_at
		FROM patients
		WHERE patient_id = $1
	`

	var p models.Patient
	var ward, bedLabel sql.NullString

	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&p.PatientID,
		&p.FullName,
		&p.MRN,
		&ward,
		&bedLabel,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("patient not found: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if ward.Valid {
		p.Ward = &ward.String
	}
	if bedLabel.Valid {
		p.BedLabel = &bedLabel.String
	}

	return &p, nil
}

// ListPatients 获取所有患者（按姓名排序）
func (r *PatientsRepository) ListPatients(ctx context.Context) ([]models.Patient, error) {
	query := `
		SELECT
			patient_id, full_name, mrn, ward, bed_label, created_at
		FROM patients
		ORDER BY full_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		var p models.Patient
		var ward, bedLabel sql.NullString

		err := rows.Scan(
			&p.PatientID,
			&p.FullName,
			&p.MRN,
			&ward,
			&bedLabel,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}

		if ward.Valid {
			p.Ward = &ward.String
		}
		if bedLabel.Valid {
			p.BedLabel = &bedLabel.String
		}

		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}

	return patients, nil
}
