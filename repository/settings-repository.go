package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const settingsRowId = "settings"

// SiteSettings is the single row of site-wide feature flags. It is loaded
// per call and passed into services explicitly, never cached in a process
// global.
type SiteSettings struct {
	Id                       string `gorm:"primaryKey"`
	FirebaseEnabled          bool   `gorm:"not null;default:false"`
	PushNotificationsEnabled bool   `gorm:"not null;default:false"`
	LikesEnabled             bool   `gorm:"not null;default:true"`
	CommentsEnabled          bool   `gorm:"not null;default:true"`
	SharingEnabled           bool   `gorm:"not null;default:true"`
	MessagingEnabled         bool   `gorm:"not null;default:true"`
	PaymentsEnabled          bool   `gorm:"not null;default:false"`
	AdvertisementsEnabled    bool   `gorm:"not null;default:false"`
}

type SettingsRepository struct {
	DB *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{DB: db}
}

// GetSettings loads the settings row, creating it with defaults on first use.
func (r *SettingsRepository) GetSettings() (*SiteSettings, error) {
	var settings SiteSettings
	result := r.DB.First(&settings, "id = ?", settingsRowId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			settings = SiteSettings{Id: settingsRowId, LikesEnabled: true, CommentsEnabled: true, SharingEnabled: true, MessagingEnabled: true}
			if err := r.DB.Create(&settings).Error; err != nil {
				return nil, fmt.Errorf("failed to create default settings: %v", err)
			}
			return &settings, nil
		}
		return nil, result.Error
	}
	return &settings, nil
}

func (r *SettingsRepository) SaveSettings(settings *SiteSettings) (*SiteSettings, error) {
	settings.Id = settingsRowId
	result := r.DB.Save(settings)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save settings: %v", result.Error)
	}
	return settings, nil
}
