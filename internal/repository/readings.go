package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mediwatch-vitals/internal/models"

	"go.uber.org/zap"
)

// ReadingsRepository 生命体征读数仓库
type ReadingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingsRepository 创建读数仓库
func NewReadingsRepository(db *sql.DB, logger *zap.Logger) *ReadingsRepository {
	return &ReadingsRepository{
		db:     db,
		logger: logger,
	}
}

// ReadingFilters 读数查询过滤条件
type ReadingFilters struct {
	PatientID  *string
	Source     *string
	IsCritical *bool
	StartTime  *time.Time // recorded_at >= StartTime
	EndTime    *time.Time // recorded_at <= EndTime
}

// CreateReading 写入一条读数
func (r *ReadingsRepository) CreateReading(ctx context.Context, reading *models.StoredReading) error {
	if reading == nil {
		return fmt.Errorf("reading is required")
	}
	if reading.ReadingID == "" {
		return fmt.Errorf("reading_id is required")
	}
	if reading.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}

	conditionsJSON, err := json.Marshal(reading.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	query := `
		INSERT INTO vital_readings (
			reading_id, patient_id, heart_rate, spo2, temperature,
			systolic, diastolic, respiratory_rate, source,
			is_critical, conditions, recorded_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.db.ExecContext(ctx, query,
		reading.ReadingID,
		reading.PatientID,
		reading.HeartRate,
		reading.SpO2,
		reading.Temperature,
		reading.Systolic,
		reading.Diastolic,
		reading.RespiratoryRate,
		reading.Source,
		reading.IsCritical,
		conditionsJSON,
		reading.RecordedAt,
		reading.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reading: %w", err)
	}

	return nil
}

// GetReading 根据 reading_id 获取单条读数
func (r *ReadingsRepository) GetReading(ctx context.Context, readingID string) (*models.StoredReading, error) {
	if readingID == "" {
		return nil, fmt.Errorf("reading_id is required")
	}

	query := `
		SELECT
			reading_id, patient_id, heart_rate, spo2, temperature,
			systolic, diastolic, respiratory_rate, source,
			is_critical, conditions, recorded_at, created_at
		FROM vital_readings
		WHERE reading_id = $1
	`

	reading, err := r.scanReading(r.db.QueryRowContext(ctx, query, readingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("reading not found: %s", readingID)
		}
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}

	return reading, nil
}

// LatestReading 获取患者最新一条读数（没有则返回 nil）
func (r *ReadingsRepository) LatestReading(ctx context.Context, patientID string) (*models.StoredReading, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	query := `
		SELECT
			reading_id, patient_id, heart_rate, spo2, temperature,
			systolic, diastolic, respiratory_rate, source,
			is_critical, conditions, recorded_at, created_at
		FROM vital_readings
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	reading, err := r.scanReading(r.db.QueryRowContext(ctx, query, patientID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}

	return reading, nil
}

// ListReadings 查询读数列表（支持过滤和分页），返回列表和总数
func (r *ReadingsRepository) ListReadings(
	ctx context.Context,
	filters ReadingFilters,
	page, size int,
) ([]*models.StoredReading, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if filters.PatientID != nil {
		where += fmt.Sprintf(" AND patient_id = $%d", argIdx)
		args = append(args, *filters.PatientID)
		argIdx++
	}
	if filters.Source != nil {
		where += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, *filters.Source)
		argIdx++
	}
	if filters.IsCritical != nil {
		where += fmt.Sprintf(" AND is_critical = $%d", argIdx)
		args = append(args, *filters.IsCritical)
		argIdx++
	}
	if filters.StartTime != nil {
		where += fmt.Sprintf(" AND recorded_at >= $%d", argIdx)
		args = append(args, *filters.StartTime)
		argIdx++
	}
	if filters.EndTime != nil {
		where += fmt.Sprintf(" AND recorded_at <= $%d", argIdx)
		args = append(args, *filters.EndTime)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM vital_readings " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count readings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT
			reading_id, patient_id, heart_rate, spo2, temperature,
			systolic, diastolic, respiratory_rate, source,
			is_critical, conditions, recorded_at, created_at
		FROM vital_readings
		%s
		ORDER BY recorded_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var readings []*models.StoredReading
	for rows.Next() {
		reading, err := r.scanReading(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate readings: %w", err)
	}

	return readings, total, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *ReadingsRepository) scanReading(row scanner) (*models.StoredReading, error) {
	var reading models.StoredReading
	var systolic, diastolic, respiratoryRate sql.NullFloat64
	var conditionsJSON []byte

	err := row.Scan(
		&reading.ReadingID,
		&reading.PatientID,
		&reading.HeartRate,
		&reading.SpO2,
		&reading.Temperature,
		&systolic,
		&diastolic,
		&respiratoryRate,
		&reading.Source,
		&reading.IsCritical,
		&conditionsJSON,
		&reading.RecordedAt,
		&reading.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if systolic.Valid {
		reading.Systolic = &systolic.Float64
	}
	if diastolic.Valid {
		reading.Diastolic = &diastolic.Float64
	}
	if respiratoryRate.Valid {
		reading.RespiratoryRate = &respiratoryRate.Float64
	}
	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &reading.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
		}
	}

	return &reading, nil
}
