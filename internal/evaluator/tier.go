package evaluator

import (
	"errors"
	"fmt"
	"math"
)

// Tier 仪表盘显示层级
type Tier string

const (
	TierNormal   Tier = "normal"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Display channels accepted by TierFor.
const (
	ChannelBloodPressure   = "bp"
	ChannelHeartRate       = "hr"
	ChannelTemperature     = "temp" // Fahrenheit
	ChannelOxygen          = "o2"
	ChannelRespiratoryRate = "resp"
)

// ErrUnknownChannel 未知显示通道
// The source system silently tiered unknown channels as normal; that masked
// typos, so an unrecognized channel is an explicit error here.
var ErrUnknownChannel = errors.New("unknown vital channel")

// band is a closed [Min, Max] range; a value outside it escalates.
type band struct {
	Min float64
	Max float64
}

func (b band) contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// displayThresholds 仪表盘三级阈值（temperature 单位为华氏度）
// Per channel: the wider critical band is checked first, then the narrower
// normal band. Kept separate from criticalThresholds (°C) on purpose.
var displayThresholds = map[string]struct {
	Critical band
	Normal   band
}{
	ChannelHeartRate:       {Critical: band{50, 120}, Normal: band{60, 100}},
	ChannelTemperature:     {Critical: band{96, 101}, Normal: band{97.8, 99.1}},
	// Oxygen saturation alarms only on the low side.
	ChannelOxygen:          {Critical: band{90, math.Inf(1)}, Normal: band{95, math.Inf(1)}},
	ChannelRespiratoryRate: {Critical: band{8, 25}, Normal: band{12, 20}},
}

var bpThresholds = struct {
	SystolicCritical  band
	DiastolicCritical band
	SystolicNormal    band
	DiastolicNormal   band
}{
	SystolicCritical:  band{80, 140},
	DiastolicCritical: band{50, 100},
	SystolicNormal:    band{90, 120},
	DiastolicNormal:   band{60, 80},
}

// TierFor 对单个通道做三级分类（normal / warning / critical）
// Blood pressure is the one paired channel and requires the diastolic value
// as the secondary argument; all other channels take a single value.
func TierFor(channel string, value float64, secondary ...float64) (Tier, error) {
	if channel == ChannelBloodPressure {
		if len(secondary) == 0 {
			return "", fmt.Errorf("channel %q requires systolic and diastolic values", channel)
		}
		return bpTier(value, secondary[0]), nil
	}

	t, ok := displayThresholds[channel]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	if !t.Critical.contains(value) {
		return TierCritical, nil
	}
	if !t.Normal.contains(value) {
		return TierWarning, nil
	}
	return TierNormal, nil
}

func bpTier(systolic, diastolic float64) Tier {
	if !bpThresholds.SystolicCritical.contains(systolic) || !bpThresholds.DiastolicCritical.contains(diastolic) {
		return TierCritical
	}
	if !bpThresholds.SystolicNormal.contains(systolic) || !bpThresholds.DiastolicNormal.contains(diastolic) {
		return TierWarning
	}
	return TierNormal
}
