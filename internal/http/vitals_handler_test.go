package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mediwatch-vitals/internal/evaluator"
	"mediwatch-vitals/internal/models"
	"mediwatch-vitals/internal/repository"
	"mediwatch-vitals/internal/service"
	"mediwatch-vitals/internal/store"
)

type fakeIngester struct {
	result *service.IngestResult
	err    error

	gotPatientID string
	gotVitals    models.VitalReading
	gotSource    string
}

func (f *fakeIngester) Ingest(ctx context.Context, patientID string, vitals models.VitalReading, source string, recordedAt time.Time) (*service.IngestResult, error) {
	f.gotPatientID = patientID
	f.gotVitals = vitals
	f.gotSource = source
	return f.result, f.err
}

type fakeReadingStore struct {
	readings []*models.StoredReading
	total    int
	latest   *models.StoredReading
	err      error
}

func (f *fakeReadingStore) ListReadings(ctx context.Context, filters repository.ReadingFilters, page, size int) ([]*models.StoredReading, int, error) {
	return f.readings, f.total, f.err
}

func (f *fakeReadingStore) LatestReading(ctx context.Context, patientID string) (*models.StoredReading, error) {
	return f.latest, f.err
}

type fakePatientStore struct {
	patient *models.Patient
	err     error
}

func (f *fakePatientStore) GetPatientByID(ctx context.Context, patientID string) (*models.Patient, error) {
	return f.patient, f.err
}

type fakeLatestCache struct {
	reading *models.StoredReading
	err     error
}

func (f *fakeLatestCache) GetLatest(ctx context.Context, patientID string) (*models.StoredReading, error) {
	return f.reading, f.err
}

func newVitalsRouter(t *testing.T, h *VitalsHandler) *Router {
	t.Helper()
	r := NewRouter(zap.NewNop())
	r.RegisterVitalsRoutes(h)
	return r
}

func decodeResult(t *testing.T, body *bytes.Buffer) Result[json.RawMessage] {
	t.Helper()
	var res Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(body.Bytes(), &res))
	return res
}

func TestPostReading_Success(t *testing.T) {
	ingester := &fakeIngester{result: &service.IngestResult{
		Reading:    &models.StoredReading{ReadingID: "r1", PatientID: "p1"},
		IsCritical: true,
		Conditions: []string{"High heart rate: 140 bpm (above 120)"},
	}}

	h := NewVitalsHandler(ingester, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	body := `{"patient_id":"p1","heart_rate":140,"spo2":92,"temperature":37,"source":"monitor"}`
	req := httptest.NewRequest(http.MethodPost, "/vitals/api/v1/readings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	res := decodeResult(t, rec.Body)
	assert.Equal(t, ResultSuccess, res.Code)

	var result service.IngestResult
	require.NoError(t, json.Unmarshal(res.Result, &result))
	assert.True(t, result.IsCritical)
	assert.Equal(t, []string{"High heart rate: 140 bpm (above 120)"}, result.Conditions)

	assert.Equal(t, "p1", ingester.gotPatientID)
	assert.Equal(t, 140.0, ingester.gotVitals.HeartRate)
	assert.Equal(t, "monitor", ingester.gotSource)
}

func TestPostReading_MissingRequiredChannel(t *testing.T) {
	h := NewVitalsHandler(&fakeIngester{}, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	tests := []struct {
		name string
		body string
	}{
		{"no patient_id", `{"heart_rate":72,"spo2":98,"temperature":37}`},
		{"no heart_rate", `{"patient_id":"p1","spo2":98,"temperature":37}`},
		{"no spo2", `{"patient_id":"p1","heart_rate":72,"temperature":37}`},
		{"no temperature", `{"patient_id":"p1","heart_rate":72,"spo2":98}`},
		{"partial blood pressure", `{"patient_id":"p1","heart_rate":72,"spo2":98,"temperature":37,"blood_pressure":{"systolic":120}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/vitals/api/v1/readings", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPostReading_ZeroValuesAreNotMissing(t *testing.T) {
	ingester := &fakeIngester{err: evaluator.ErrInvalidReading}
	h := NewVitalsHandler(ingester, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	// Explicit zeros pass presence validation and reach the pipeline.
	body := `{"patient_id":"p1","heart_rate":0,"spo2":0,"temperature":0}`
	req := httptest.NewRequest(http.MethodPost, "/vitals/api/v1/readings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, "p1", ingester.gotPatientID)
	assert.Equal(t, 0.0, ingester.gotVitals.HeartRate)
}

func TestPostReading_BadRecordedAt(t *testing.T) {
	h := NewVitalsHandler(&fakeIngester{}, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	body := `{"patient_id":"p1","heart_rate":72,"spo2":98,"temperature":37,"recorded_at":"yesterday"}`
	req := httptest.NewRequest(http.MethodPost, "/vitals/api/v1/readings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostReading_InvalidVitals(t *testing.T) {
	ingester := &fakeIngester{err: evaluator.ErrInvalidReading}
	h := NewVitalsHandler(ingester, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	body := `{"patient_id":"p1","heart_rate":72,"spo2":98,"temperature":37}`
	req := httptest.NewRequest(http.MethodPost, "/vitals/api/v1/readings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostReading_IngestFailure(t *testing.T) {
	ingester := &fakeIngester{err: errors.New("db down")}
	h := NewVitalsHandler(ingester, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	body := `{"patient_id":"p1","heart_rate":72,"spo2":98,"temperature":37}`
	req := httptest.NewRequest(http.MethodPost, "/vitals/api/v1/readings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListReadings_Success(t *testing.T) {
	readings := &fakeReadingStore{
		readings: []*models.StoredReading{
			{ReadingID: "r1", PatientID: "p1", IsCritical: true},
		},
		total: 1,
	}

	h := NewVitalsHandler(&fakeIngester{}, readings, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/vitals/api/v1/readings?patient_id=p1&critical=true", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec.Body)
	assert.Equal(t, ResultSuccess, res.Code)

	var model ListReadingsModel
	require.NoError(t, json.Unmarshal(res.Result, &model))
	require.Len(t, model.Items, 1)
	assert.Equal(t, "r1", model.Items[0].ReadingID)
	assert.Equal(t, 1, model.Pagination.Count)
}

func TestGetLatest_FromCache(t *testing.T) {
	cache := &fakeLatestCache{reading: &models.StoredReading{
		ReadingID:   "r1",
		PatientID:   "p1",
		HeartRate:   55,
		SpO2:        98,
		Temperature: 37,
	}}

	h := NewVitalsHandler(&fakeIngester{}, &fakeReadingStore{}, &fakePatientStore{}, cache, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/vitals/api/v1/patients/p1/latest", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec.Body)
	var model LatestModel
	require.NoError(t, json.Unmarshal(res.Result, &model))
	assert.Equal(t, "r1", model.Reading.ReadingID)

	// 55 bpm is inside the critical band but outside the normal one.
	assert.Equal(t, "warning", model.Tiers["hr"])
	assert.Equal(t, "normal", model.Tiers["o2"])
	// 37°C converts to 98.6°F before display tiering.
	assert.Equal(t, "normal", model.Tiers["temp"])
}

func TestGetLatest_CacheMissFallsBackToDB(t *testing.T) {
	cache := &fakeLatestCache{err: store.ErrMiss}
	readings := &fakeReadingStore{latest: &models.StoredReading{
		ReadingID:   "r2",
		PatientID:   "p1",
		HeartRate:   72,
		SpO2:        98,
		Temperature: 37,
	}}

	h := NewVitalsHandler(&fakeIngester{}, readings, &fakePatientStore{}, cache, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/vitals/api/v1/patients/p1/latest", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec.Body)
	var model LatestModel
	require.NoError(t, json.Unmarshal(res.Result, &model))
	assert.Equal(t, "r2", model.Reading.ReadingID)
}

func TestGetLatest_NoReadings(t *testing.T) {
	h := NewVitalsHandler(&fakeIngester{}, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/vitals/api/v1/patients/p1/latest", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportReadings_Success(t *testing.T) {
	patients := &fakePatientStore{patient: &models.Patient{PatientID: "p1", FullName: "Jane Roe", MRN: "MRN-0042"}}
	readings := &fakeReadingStore{
		readings: []*models.StoredReading{{ReadingID: "r1", PatientID: "p1"}},
		total:    1,
	}

	report := func(patient *models.Patient, rs []*models.StoredReading) ([]byte, error) {
		return []byte("xlsx-bytes"), nil
	}

	h := NewVitalsHandler(&fakeIngester{}, readings, patients, nil, report, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/vitals/api/v1/reports/readings.xlsx?patient_id=p1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "readings-p1.xlsx")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}

func TestExportReadings_RequiresPatientID(t *testing.T) {
	h := NewVitalsHandler(&fakeIngester{}, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/vitals/api/v1/reports/readings.xlsx", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := NewVitalsHandler(&fakeIngester{}, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodGet, "/vitals/api/v1/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadingsRoute_MethodNotAllowed(t *testing.T) {
	h := NewVitalsHandler(&fakeIngester{}, &fakeReadingStore{}, &fakePatientStore{}, nil, nil, zap.NewNop())
	router := newVitalsRouter(t, h)

	req := httptest.NewRequest(http.MethodDelete, "/vitals/api/v1/readings", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
