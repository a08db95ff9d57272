package service

import (
	"context"
	"fmt"
	"time"

	"mediwatch-vitals/internal/evaluator"
	"mediwatch-vitals/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReadingStore 读数持久化接口
type ReadingStore interface {
	CreateReading(ctx context.Context, reading *models.StoredReading) error
}

// PatientStore 患者查询接口
type PatientStore interface {
	GetPatientByID(ctx context.Context, patientID string) (*models.Patient, error)
}

// LatestCache 最新读数缓存接口
type LatestCache interface {
	SetLatest(ctx context.Context, reading *models.StoredReading) error
	SetActiveAlert(ctx context.Context, patientID string, verdict models.SeverityVerdict) error
}

// AlertDispatcher 危急报警扇出接口
type AlertDispatcher interface {
	Dispatch(ctx context.Context, patient models.Patient, reading models.StoredReading, verdict models.SeverityVerdict) (int, error)
}

// IngestService 读数接入服务
// 职责：
// 1. 校验并分类读数（危急阈值）
// 2. 持久化读数（含 is_critical 和 conditions）
// 3. 刷新最新读数缓存
// 4. 危急读数触发通知扇出
// Both the HTTP handler and the MQTT consumer feed this one pipeline.
type IngestService struct {
	readings ReadingStore
	patients PatientStore
	cache    LatestCache // may be nil
	alerts   AlertDispatcher
	logger   *zap.Logger
}

// NewIngestService 创建读数接入服务
func NewIngestService(
	readings ReadingStore,
	patients PatientStore,
	cache LatestCache,
	alerts AlertDispatcher,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		readings: readings,
		patients: patients,
		cache:    cache,
		alerts:   alerts,
		logger:   logger,
	}
}

// IngestResult 一次接入的结果（不包含接收人明细）
type IngestResult struct {
	Reading    *models.StoredReading `json:"reading"`
	IsCritical bool                  `json:"is_critical"`
	Conditions []string              `json:"conditions"`
}

// Ingest 接入一条读数
// The reading is durably recorded before any alerting; a fan-out failure
// affects notification delivery only, never the vital-sign record, so it is
// logged rather than returned.
func (s *IngestService) Ingest(
	ctx context.Context,
	patientID string,
	vitals models.VitalReading,
	source string,
	recordedAt time.Time,
) (*IngestResult, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	patient, err := s.patients.GetPatientByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve patient: %w", err)
	}

	verdict, err := evaluator.Classify(vitals)
	if err != nil {
		return nil, err
	}

	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	if source == "" {
		source = "manual"
	}

	reading := &models.StoredReading{
		ReadingID:       uuid.New().String(),
		PatientID:       patientID,
		HeartRate:       vitals.HeartRate,
		SpO2:            vitals.SpO2,
		Temperature:     vitals.Temperature,
		RespiratoryRate: vitals.RespiratoryRate,
		Source:          source,
		IsCritical:      verdict.IsCritical,
		Conditions:      verdict.Conditions,
		RecordedAt:      recordedAt,
		CreatedAt:       time.Now(),
	}
	if vitals.BloodPressure != nil {
		reading.Systolic = &vitals.BloodPressure.Systolic
		reading.Diastolic = &vitals.BloodPressure.Diastolic
	}

	if err := s.readings.CreateReading(ctx, reading); err != nil {
		return nil, fmt.Errorf("failed to store reading: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, reading); err != nil {
			s.logger.Warn("Failed to update latest reading cache",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
		}
	}

	if verdict.IsCritical {
		s.logger.Info("Critical reading detected",
			zap.String("patient_id", patientID),
			zap.String("reading_id", reading.ReadingID),
			zap.Strings("conditions", verdict.Conditions),
		)

		if s.cache != nil {
			if err := s.cache.SetActiveAlert(ctx, patientID, verdict); err != nil {
				s.logger.Warn("Failed to update alert cache",
					zap.String("patient_id", patientID),
					zap.Error(err),
				)
			}
		}

		if _, err := s.alerts.Dispatch(ctx, *patient, *reading, verdict); err != nil {
			s.logger.Error("Critical alert fan-out failed",
				zap.String("patient_id", patientID),
				zap.String("reading_id", reading.ReadingID),
				zap.Error(err),
			)
		}
	}

	return &IngestResult{
		Reading:    reading,
		IsCritical: verdict.IsCritical,
		Conditions: verdict.Conditions,
	}, nil
}
