package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog rows are append-only.
type AuditLog struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"userId" gorm:"type:varchar(36);index;not null"`
	Action     string    `json:"action" gorm:"type:varchar(64);index;not null"`
	EntityType string    `json:"entityType" gorm:"type:varchar(64);index;not null"`
	EntityID   *string   `json:"entityId,omitempty" gorm:"type:varchar(36);index"`
	OldValues  *string   `json:"oldValues,omitempty" gorm:"type:text"`
	NewValues  *string   `json:"newValues,omitempty" gorm:"type:text"`
	IPAddress  string    `json:"ipAddress" gorm:"type:varchar(64)"`
	UserAgent  string    `json:"userAgent" gorm:"type:varchar(512)"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
	User       *User     `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:-"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a AuditLog) PrimaryID() string { return a.ID }
