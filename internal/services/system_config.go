package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/huangang/issuepulse/internal/models"
	"gorm.io/gorm"
)

// SystemConfigService reads and writes rows of system_configs.
type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(ctx context.Context, key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.WithContext(ctx).Where(&models.SystemConfig{Key: key}).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) GetUint(ctx context.Context, key string) uint {
	n, err := strconv.ParseUint(s.GetWithDefault(ctx, key, "0"), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}

func (s *SystemConfigService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(s.GetWithDefault(ctx, key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return b
}

func (s *SystemConfigService) Set(ctx context.Context, key, value string) error {
	db := s.db.WithContext(ctx)
	var cfg models.SystemConfig
	err := db.Where(&models.SystemConfig{Key: key}).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.SystemConfig{Key: key, Value: value}).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(ctx context.Context, group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.WithContext(ctx).Where(&models.SystemConfig{Group: group}).Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}
