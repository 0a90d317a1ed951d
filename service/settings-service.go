package service

import (
	"vibtrix/repository"

	"gorm.io/gorm"
)

type SettingsService struct {
	settingsRepository *repository.SettingsRepository
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		settingsRepository: repository.NewSettingsRepository(db),
	}
}

func (s *SettingsService) GetSettings() (*repository.SiteSettings, error) {
	return s.settingsRepository.GetSettings()
}

func (s *SettingsService) UpdateSettings(settings *repository.SiteSettings) (*repository.SiteSettings, error) {
	return s.settingsRepository.SaveSettings(settings)
}
