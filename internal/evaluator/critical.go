package evaluator

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"mediwatch-vitals/internal/models"
)

// ErrInvalidReading 必填通道缺失或非数值
// The critical classifier is the admission check for the alerting pipeline:
// a reading with a missing or non-numeric required channel is rejected
// outright rather than partially evaluated.
var ErrInvalidReading = errors.New("invalid reading: heart rate, SpO2 and temperature must be finite numbers")

// criticalThresholds 报警触发阈值（temperature 单位为摄氏度）
// Safe bands are inclusive: a value sitting exactly on a bound is normal.
// Do not merge with displayThresholds: that table is in Fahrenheit and
// serves the dashboard tiering only.
var criticalThresholds = struct {
	HeartRateMin   float64
	HeartRateMax   float64
	SpO2Min        float64
	TemperatureMin float64 // °C
	TemperatureMax float64 // °C
}{
	HeartRateMin:   50,
	HeartRateMax:   120,
	SpO2Min:        90,
	TemperatureMin: 35,
	TemperatureMax: 39,
}

// Classify 评估一次读数是否触发危急报警
// Conditions are appended in fixed channel order (heart rate, SpO2,
// temperature); at most one condition per channel. Pure function, safe for
// concurrent use.
func Classify(r models.VitalReading) (models.SeverityVerdict, error) {
	if !isFinite(r.HeartRate) || !isFinite(r.SpO2) || !isFinite(r.Temperature) {
		return models.SeverityVerdict{}, ErrInvalidReading
	}

	var conditions []string

	if r.HeartRate < criticalThresholds.HeartRateMin {
		conditions = append(conditions, fmt.Sprintf("Low heart rate: %s bpm (below 50)", formatVital(r.HeartRate)))
	}
	if r.HeartRate > criticalThresholds.HeartRateMax {
		conditions = append(conditions, fmt.Sprintf("High heart rate: %s bpm (above 120)", formatVital(r.HeartRate)))
	}
	if r.SpO2 < criticalThresholds.SpO2Min {
		conditions = append(conditions, fmt.Sprintf("Low SpO2: %s%% (below 90%%)", formatVital(r.SpO2)))
	}
	if r.Temperature < criticalThresholds.TemperatureMin {
		conditions = append(conditions, fmt.Sprintf("Low temperature: %s°C (below 35°C)", formatVital(r.Temperature)))
	}
	if r.Temperature > criticalThresholds.TemperatureMax {
		conditions = append(conditions, fmt.Sprintf("High temperature: %s°C (above 39°C)", formatVital(r.Temperature)))
	}

	return models.SeverityVerdict{
		IsCritical: len(conditions) > 0,
		Conditions: conditions,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// formatVital renders a vital value the way it was observed: no trailing
// zeros, no forced decimals (140 -> "140", 91.5 -> "91.5").
func formatVital(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
