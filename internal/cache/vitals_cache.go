package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mediwatch-vitals/internal/config"
	"mediwatch-vitals/internal/models"
	"mediwatch-vitals/internal/store"

	"go.uber.org/zap"
)

// VitalsCache 生命体征缓存（最新读数 + 活跃报警）
// Latest readings back the dashboard's per-patient tiles; active alerts are
// a short-TTL overlay the front end polls for banner state.
type VitalsCache struct {
	config *config.Config
	kv     store.KV
	logger *zap.Logger
}

// NewVitalsCache 创建缓存管理器
func NewVitalsCache(cfg *config.Config, kv store.KV, logger *zap.Logger) *VitalsCache {
	return &VitalsCache{
		config: cfg,
		kv:     kv,
		logger: logger,
	}
}

func (c *VitalsCache) latestKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Cache.KeyPrefix,
		patientID,
		c.config.Cache.LatestSuffix,
	)
}

func (c *VitalsCache) alertKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Cache.KeyPrefix,
		patientID,
		c.config.Cache.AlertSuffix,
	)
}

// SetLatest 写入患者最新读数缓存
func (c *VitalsCache) SetLatest(ctx context.Context, reading *models.StoredReading) error {
	jsonData, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	ttl := time.Duration(c.config.Cache.LatestTTL) * time.Second
	if err := c.kv.Set(ctx, c.latestKey(reading.PatientID), string(jsonData), ttl); err != nil {
		return fmt.Errorf("failed to set latest reading cache: %w", err)
	}

	c.logger.Debug("Updated latest reading cache",
		zap.String("patient_id", reading.PatientID),
		zap.String("reading_id", reading.ReadingID),
	)

	return nil
}

// GetLatest 读取患者最新读数缓存（未命中返回 store.ErrMiss）
func (c *VitalsCache) GetLatest(ctx context.Context, patientID string) (*models.StoredReading, error) {
	val, err := c.kv.Get(ctx, c.latestKey(patientID))
	if err != nil {
		return nil, err
	}

	var reading models.StoredReading
	if err := json.Unmarshal([]byte(val), &reading); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached reading: %w", err)
	}

	return &reading, nil
}

// SetActiveAlert 写入患者活跃报警缓存（短 TTL）
func (c *VitalsCache) SetActiveAlert(ctx context.Context, patientID string, verdict models.SeverityVerdict) error {
	jsonData, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	ttl := time.Duration(c.config.Cache.AlertTTL) * time.Second
	if err := c.kv.Set(ctx, c.alertKey(patientID), string(jsonData), ttl); err != nil {
		return fmt.Errorf("failed to set alert cache: %w", err)
	}

	return nil
}

// GetActiveAlert 读取患者活跃报警缓存（未命中返回 store.ErrMiss）
func (c *VitalsCache) GetActiveAlert(ctx context.Context, patientID string) (*models.SeverityVerdict, error) {
	val, err := c.kv.Get(ctx, c.alertKey(patientID))
	if err != nil {
		return nil, err
	}

	var verdict models.SeverityVerdict
	if err := json.Unmarshal([]byte(val), &verdict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached verdict: %w", err)
	}

	return &verdict, nil
}
