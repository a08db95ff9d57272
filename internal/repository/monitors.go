package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mediwatch-vitals/internal/models"

	"go.uber.org/zap"
)

// MonitorsRepository 床旁监护仪仓库
type MonitorsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMonitorsRepository 创建监护仪仓库
func NewMonitorsRepository(db *sql.DB, logger *zap.Logger) *MonitorsRepository {
	return &MonitorsRepository{
		db:     db,
		logger: logger,
	}
}

// GetMonitorBySerial 根据序列号获取监护仪（MQTT 主题中的设备标识）
func (r *MonitorsRepository) GetMonitorBySerial(ctx context.Context, serialNumber string) (*models.Monitor, error) {
	if serialNumber == "" {
		return nil, fmt.Errorf("serial_number is required")
	}

	query := `
		SELECT
			monitor_id, serial_number, patient_id, is_active
		FROM monitors
		WHERE serial_number = $1
		  AND is_active = true
	`

	var m models.Monitor
	err := r.db.QueryRowContext(ctx, query, serialNumber).Scan(
		&m.MonitorID,
		&m.SerialNumber,
		&m.PatientID,
		&m.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("monitor not found: %s", serialNumber)
		}
		return nil, fmt.Errorf("failed to get monitor: %w", err)
	}

	return &m, nil
}
