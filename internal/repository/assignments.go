package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mediwatch-vitals/internal/models"

	"go.uber.org/zap"
)

// AssignmentsRepository 护理分配仓库
type AssignmentsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssignmentsRepository 创建护理分配仓库
func NewAssignmentsRepository(db *sql.DB, logger *zap.Logger) *AssignmentsRepository {
	return &AssignmentsRepository{
		db:     db,
		logger: logger,
	}
}

// FindActiveAssignments 查询患者的有效护理分配（is_active = true）
func (r *AssignmentsRepository) FindActiveAssignments(ctx context.Context, patientID string) ([]models.CareAssignment, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT
			assignment_id, patient_id, nurse_id, doctor_id, is_active, assigned_at
		FROM care_assignments
		WHERE patient_id = $1
		  AND is_active = true
		ORDER BY assigned_at
	`

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.CareAssignment
	for rows.Next() {
		var a models.CareAssignment
		var doctorID sql.NullString

		err := rows.Scan(
			&a.AssignmentID,
			&a.PatientID,
			&a.NurseID,
			&doctorID,
			&a.IsActive,
			&a.AssignedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}

		if doctorID.Valid {
			a.DoctorID = &doctorID.String
		}

		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, nil
}
