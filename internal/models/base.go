package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b Base) PrimaryID() string { return b.ID }

// All returns every model in migration order.
func All() []any {
	return []any{
		&User{},
		&County{},
		&Constituency{},
		&Ward{},
		&PollingStation{},
		&VoterRegistration{},
		&Candidate{},
		&ElectionResult{},
		&Incident{},
		&AuditLog{},
	}
}
