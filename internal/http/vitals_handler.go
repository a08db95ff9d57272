package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mediwatch-vitals/internal/evaluator"
	"mediwatch-vitals/internal/models"
	"mediwatch-vitals/internal/repository"
	"mediwatch-vitals/internal/service"
	"mediwatch-vitals/internal/store"

	"go.uber.org/zap"
)

// Ingester 读数接入管道
type Ingester interface {
	Ingest(ctx context.Context, patientID string, vitals models.VitalReading, source string, recordedAt time.Time) (*service.IngestResult, error)
}

// ReadingStore 读数查询接口
type ReadingStore interface {
	ListReadings(ctx context.Context, filters repository.ReadingFilters, page, size int) ([]*models.StoredReading, int, error)
	LatestReading(ctx context.Context, patientID string) (*models.StoredReading, error)
}

// PatientStore 患者查询接口
type PatientStore interface {
	GetPatientByID(ctx context.Context, patientID string) (*models.Patient, error)
}

// LatestCache 最新读数缓存读取接口
type LatestCache interface {
	GetLatest(ctx context.Context, patientID string) (*models.StoredReading, error)
}

// ReportBuilder 读数导出
type ReportBuilder func(patient *models.Patient, readings []*models.StoredReading) ([]byte, error)

// VitalsHandler 读数接入与查询
type VitalsHandler struct {
	ingester Ingester
	readings ReadingStore
	patients PatientStore
	cache    LatestCache // may be nil
	report   ReportBuilder
	logger   *zap.Logger
}

// NewVitalsHandler 创建读数 Handler
func NewVitalsHandler(
	ingester Ingester,
	readings ReadingStore,
	patients PatientStore,
	cache LatestCache,
	report ReportBuilder,
	logger *zap.Logger,
) *VitalsHandler {
	return &VitalsHandler{
		ingester: ingester,
		readings: readings,
		patients: patients,
		cache:    cache,
		report:   report,
		logger:   logger,
	}
}

// Pagination 列表分页信息
type Pagination struct {
	Page  int `json:"page"`
	Size  int `json:"size"`
	Count int `json:"count"`
}

// postReadingBody POST /vitals/api/v1/readings 请求体
// Required channels are pointers so that "absent" and "zero" stay distinct;
// a missing required channel is a client error, not a zero reading.
type postReadingBody struct {
	PatientID     string   `json:"patient_id"`
	HeartRate     *float64 `json:"heart_rate"`
	SpO2          *float64 `json:"spo2"`
	Temperature   *float64 `json:"temperature"`
	BloodPressure *struct {
		Systolic  *float64 `json:"systolic"`
		Diastolic *float64 `json:"diastolic"`
	} `json:"blood_pressure"`
	RespiratoryRate *float64 `json:"respiratory_rate"`
	Source          string   `json:"source"`
	RecordedAt      string   `json:"recorded_at"` // RFC3339, optional
}

// PostReading 接入一条读数
// POST /vitals/api/v1/readings
func (h *VitalsHandler) PostReading(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body postReadingBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	if body.PatientID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("patient_id is required"))
		return
	}
	if body.HeartRate == nil || body.SpO2 == nil || body.Temperature == nil {
		writeJSON(w, http.StatusBadRequest, Fail("heart_rate, spo2 and temperature are required"))
		return
	}

	vitals := models.VitalReading{
		HeartRate:       *body.HeartRate,
		SpO2:            *body.SpO2,
		Temperature:     *body.Temperature,
		RespiratoryRate: body.RespiratoryRate,
	}
	if body.BloodPressure != nil {
		if body.BloodPressure.Systolic == nil || body.BloodPressure.Diastolic == nil {
			writeJSON(w, http.StatusBadRequest, Fail("blood_pressure requires both systolic and diastolic"))
			return
		}
		vitals.BloodPressure = &models.BloodPressure{
			Systolic:  *body.BloodPressure.Systolic,
			Diastolic: *body.BloodPressure.Diastolic,
		}
	}

	var recordedAt time.Time
	if body.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339, body.RecordedAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("recorded_at must be RFC3339"))
			return
		}
		recordedAt = t
	}

	result, err := h.ingester.Ingest(ctx, body.PatientID, vitals, body.Source, recordedAt)
	if err != nil {
		if errors.Is(err, evaluator.ErrInvalidReading) {
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
			return
		}
		h.logger.Error("Failed to ingest reading",
			zap.String("patient_id", body.PatientID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to ingest reading"))
		return
	}

	writeJSON(w, http.StatusCreated, Ok(result))
}

// ListReadingsModel 读数列表响应
type ListReadingsModel struct {
	Items      []*models.StoredReading `json:"items"`
	Pagination Pagination              `json:"pagination"`
}

// ListReadings 查询读数历史
// GET /vitals/api/v1/readings?patient_id=&page=&size=
func (h *VitalsHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 20)

	filters := repository.ReadingFilters{}
	if patientID := r.URL.Query().Get("patient_id"); patientID != "" {
		filters.PatientID = &patientID
	}
	if critical := r.URL.Query().Get("critical"); critical != "" {
		isCritical := critical == "true"
		filters.IsCritical = &isCritical
	}

	readings, total, err := h.readings.ListReadings(ctx, filters, page, size)
	if err != nil {
		h.logger.Error("Failed to list readings", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list readings"))
		return
	}
	if readings == nil {
		readings = []*models.StoredReading{}
	}

	writeJSON(w, http.StatusOK, Ok(ListReadingsModel{
		Items:      readings,
		Pagination: Pagination{Page: page, Size: size, Count: total},
	}))
}

// LatestModel 患者最新读数 + 各通道显示层级
type LatestModel struct {
	Reading *models.StoredReading `json:"reading"`
	Tiers   map[string]string     `json:"tiers"`
}

// GetLatest 获取患者最新读数（缓存优先，DB 兜底）
// GET /vitals/api/v1/patients/{id}/latest
func (h *VitalsHandler) GetLatest(w http.ResponseWriter, r *http.Request, patientID string) {
	ctx := r.Context()

	var reading *models.StoredReading
	if h.cache != nil {
		cached, err := h.cache.GetLatest(ctx, patientID)
		if err == nil {
			reading = cached
		} else if !errors.Is(err, store.ErrMiss) {
			h.logger.Warn("Latest reading cache read failed, falling back to DB",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
		}
	}

	if reading == nil {
		fromDB, err := h.readings.LatestReading(ctx, patientID)
		if err != nil {
			h.logger.Error("Failed to get latest reading",
				zap.String("patient_id", patientID),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, Fail("failed to get latest reading"))
			return
		}
		if fromDB == nil {
			writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("no readings for patient: %s", patientID)))
			return
		}
		reading = fromDB
	}

	writeJSON(w, http.StatusOK, Ok(LatestModel{
		Reading: reading,
		Tiers:   displayTiers(reading),
	}))
}

// displayTiers 计算仪表盘各通道显示层级
// The display table is in Fahrenheit while readings store Celsius, so the
// temperature value is converted before tiering.
func displayTiers(reading *models.StoredReading) map[string]string {
	tiers := make(map[string]string)

	if t, err := evaluator.TierFor(evaluator.ChannelHeartRate, reading.HeartRate); err == nil {
		tiers[evaluator.ChannelHeartRate] = string(t)
	}
	if t, err := evaluator.TierFor(evaluator.ChannelOxygen, reading.SpO2); err == nil {
		tiers[evaluator.ChannelOxygen] = string(t)
	}
	fahrenheit := reading.Temperature*9/5 + 32
	if t, err := evaluator.TierFor(evaluator.ChannelTemperature, fahrenheit); err == nil {
		tiers[evaluator.ChannelTemperature] = string(t)
	}
	if reading.RespiratoryRate != nil {
		if t, err := evaluator.TierFor(evaluator.ChannelRespiratoryRate, *reading.RespiratoryRate); err == nil {
			tiers[evaluator.ChannelRespiratoryRate] = string(t)
		}
	}
	if reading.Systolic != nil && reading.Diastolic != nil {
		if t, err := evaluator.TierFor(evaluator.ChannelBloodPressure, *reading.Systolic, *reading.Diastolic); err == nil {
			tiers[evaluator.ChannelBloodPressure] = string(t)
		}
	}

	return tiers
}

// ExportReadings 导出患者读数为 Excel
// GET /vitals/api/v1/reports/readings.xlsx?patient_id=
func (h *VitalsHandler) ExportReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID := r.URL.Query().Get("patient_id")
	if patientID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("patient_id is required"))
		return
	}

	patient, err := h.patients.GetPatientByID(ctx, patientID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(fmt.Sprintf("patient not found: %s", patientID)))
		return
	}

	filters := repository.ReadingFilters{PatientID: &patientID}
	readings, _, err := h.readings.ListReadings(ctx, filters, 1, 100)
	if err != nil {
		h.logger.Error("Failed to list readings for export",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list readings"))
		return
	}

	data, err := h.report(patient, readings)
	if err != nil {
		h.logger.Error("Failed to build readings workbook",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to build report"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=readings-%s.xlsx", patientID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
