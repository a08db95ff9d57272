package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mediwatch-vitals/internal/models"

	"go.uber.org/zap"
)

// CasesRepository 病例仓库
type CasesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCasesRepository 创建病例仓库
func NewCasesRepository(db *sql.DB, logger *zap.Logger) *CasesRepository {
	return &CasesRepository{
		db:     db,
		logger: logger,
	}
}

// FindOpenCase 查询患者当前在诊病例（status = 'open'），没有则返回 nil
// A patient should have at most one open case; when the data disagrees the
// most recently opened one wins.
func (r *CasesRepository) FindOpenCase(ctx context.Context, patientID string) (*models.CaseInfo, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT
			case_id, patient_id, doctor_id, status, opened_at
		FROM cases
		WHERE patient_id = $1
		  AND status = 'open'
		ORDER BY opened_at DESC
		LIMIT 1
	`

	var c models.CaseInfo
	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&c.CaseID,
		&c.PatientID,
		&c.DoctorID,
		&c.Status,
		&c.OpenedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open case: %w", err)
	}

	return &c, nil
}
