package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"mediwatch-vitals/internal/evaluator"
	"mediwatch-vitals/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReadingStore struct {
	created []models.StoredReading
	err     error
}

func (f *fakeReadingStore) CreateReading(ctx context.Context, reading *models.StoredReading) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *reading)
	return nil
}

type fakePatientStore struct {
	patient *models.Patient
	err     error
}

func (f *fakePatientStore) GetPatientByID(ctx context.Context, patientID string) (*models.Patient, error) {
	return f.patient, f.err
}

type fakeLatestCache struct {
	latest    []models.StoredReading
	alerts    []models.SeverityVerdict
	latestErr error
	alertErr  error
}

func (f *fakeLatestCache) SetLatest(ctx context.Context, reading *models.StoredReading) error {
	if f.latestErr != nil {
		return f.latestErr
	}
	f.latest = append(f.latest, *reading)
	return nil
}

func (f *fakeLatestCache) SetActiveAlert(ctx context.Context, patientID string, verdict models.SeverityVerdict) error {
	if f.alertErr != nil {
		return f.alertErr
	}
	f.alerts = append(f.alerts, verdict)
	return nil
}

type fakeDispatcher struct {
	calls []models.SeverityVerdict
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, patient models.Patient, reading models.StoredReading, verdict models.SeverityVerdict) (int, error) {
	f.calls = append(f.calls, verdict)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func newTestService(readings *fakeReadingStore, patients *fakePatientStore, cache *fakeLatestCache, alerts *fakeDispatcher) *IngestService {
	var c LatestCache
	if cache != nil {
		c = cache
	}
	return NewIngestService(readings, patients, c, alerts, zap.NewNop())
}

func TestIngest_NormalReading(t *testing.T) {
	readings := &fakeReadingStore{}
	patients := &fakePatientStore{patient: &models.Patient{PatientID: "p1", FullName: "Jane Roe"}}
	cache := &fakeLatestCache{}
	alerts := &fakeDispatcher{}

	svc := newTestService(readings, patients, cache, alerts)

	recordedAt := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	result, err := svc.Ingest(context.Background(), "p1",
		models.VitalReading{HeartRate: 72, SpO2: 98, Temperature: 36.8},
		"monitor", recordedAt)
	require.NoError(t, err)

	assert.False(t, result.IsCritical)
	assert.Empty(t, result.Conditions)
	require.Len(t, readings.created, 1)

	stored := readings.created[0]
	assert.NotEmpty(t, stored.ReadingID)
	assert.Equal(t, "p1", stored.PatientID)
	assert.Equal(t, "monitor", stored.Source)
	assert.False(t, stored.IsCritical)
	assert.Equal(t, recordedAt, stored.RecordedAt)

	assert.Len(t, cache.latest, 1)
	assert.Empty(t, cache.alerts)
	assert.Empty(t, alerts.calls)
}

func TestIngest_CriticalReadingTriggersFanOut(t *testing.T) {
	readings := &fakeReadingStore{}
	patients := &fakePatientStore{patient: &models.Patient{PatientID: "p1", FullName: "Jane Roe"}}
	cache := &fakeLatestCache{}
	alerts := &fakeDispatcher{}

	svc := newTestService(readings, patients, cache, alerts)

	result, err := svc.Ingest(context.Background(), "p1",
		models.VitalReading{HeartRate: 140, SpO2: 92, Temperature: 37},
		"", time.Time{})
	require.NoError(t, err)

	assert.True(t, result.IsCritical)
	assert.Equal(t, []string{"High heart rate: 140 bpm (above 120)"}, result.Conditions)

	require.Len(t, readings.created, 1)
	stored := readings.created[0]
	assert.Equal(t, "manual", stored.Source) // default source
	assert.True(t, stored.IsCritical)
	assert.False(t, stored.RecordedAt.IsZero())

	require.Len(t, cache.alerts, 1)
	require.Len(t, alerts.calls, 1)
	assert.Equal(t, result.Conditions, alerts.calls[0].Conditions)
}

func TestIngest_InvalidVitalsRejectedBeforeStorage(t *testing.T) {
	readings := &fakeReadingStore{}
	patients := &fakePatientStore{patient: &models.Patient{PatientID: "p1"}}

	svc := newTestService(readings, patients, nil, &fakeDispatcher{})

	_, err := svc.Ingest(context.Background(), "p1",
		models.VitalReading{HeartRate: math.NaN(), SpO2: 98, Temperature: 37},
		"", time.Time{})
	assert.ErrorIs(t, err, evaluator.ErrInvalidReading)
	assert.Empty(t, readings.created)
}

func TestIngest_UnknownPatient(t *testing.T) {
	patients := &fakePatientStore{err: errors.New("patient not found")}
	svc := newTestService(&fakeReadingStore{}, patients, nil, &fakeDispatcher{})

	_, err := svc.Ingest(context.Background(), "bogus",
		models.VitalReading{HeartRate: 72, SpO2: 98, Temperature: 37},
		"", time.Time{})
	assert.Error(t, err)
}

func TestIngest_RequiresPatientID(t *testing.T) {
	svc := newTestService(&fakeReadingStore{}, &fakePatientStore{}, nil, &fakeDispatcher{})

	_, err := svc.Ingest(context.Background(), "",
		models.VitalReading{HeartRate: 72, SpO2: 98, Temperature: 37},
		"", time.Time{})
	assert.Error(t, err)
}

func TestIngest_StorageFailureIsFatal(t *testing.T) {
	readings := &fakeReadingStore{err: errors.New("insert failed")}
	patients := &fakePatientStore{patient: &models.Patient{PatientID: "p1"}}
	alerts := &fakeDispatcher{}

	svc := newTestService(readings, patients, nil, alerts)

	_, err := svc.Ingest(context.Background(), "p1",
		models.VitalReading{HeartRate: 140, SpO2: 98, Temperature: 37},
		"", time.Time{})
	assert.Error(t, err)
	assert.Empty(t, alerts.calls)
}

func TestIngest_CacheAndFanOutFailuresAreNotFatal(t *testing.T) {
	readings := &fakeReadingStore{}
	patients := &fakePatientStore{patient: &models.Patient{PatientID: "p1", FullName: "Jane Roe"}}
	cache := &fakeLatestCache{latestErr: errors.New("redis down"), alertErr: errors.New("redis down")}
	alerts := &fakeDispatcher{err: errors.New("fan-out failed")}

	svc := newTestService(readings, patients, cache, alerts)

	result, err := svc.Ingest(context.Background(), "p1",
		models.VitalReading{HeartRate: 140, SpO2: 98, Temperature: 37},
		"", time.Time{})
	require.NoError(t, err)
	assert.True(t, result.IsCritical)
	assert.Len(t, readings.created, 1)
}

func TestIngest_BloodPressureStored(t *testing.T) {
	readings := &fakeReadingStore{}
	patients := &fakePatientStore{patient: &models.Patient{PatientID: "p1"}}

	svc := newTestService(readings, patients, nil, &fakeDispatcher{})

	result, err := svc.Ingest(context.Background(), "p1",
		models.VitalReading{
			HeartRate:     72,
			SpO2:          98,
			Temperature:   37,
			BloodPressure: &models.BloodPressure{Systolic: 118, Diastolic: 76},
		},
		"", time.Time{})
	require.NoError(t, err)

	require.NotNil(t, result.Reading.Systolic)
	require.NotNil(t, result.Reading.Diastolic)
	assert.Equal(t, 118.0, *result.Reading.Systolic)
	assert.Equal(t, 76.0, *result.Reading.Diastolic)
}
