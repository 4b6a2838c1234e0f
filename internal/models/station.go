package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PollingStation struct {
	Base
	Code           string        `json:"code" gorm:"type:varchar(32);uniqueIndex;not null"`
	Name           string        `json:"name" gorm:"type:varchar(255);index;not null"`
	ConstituencyID string        `json:"constituencyId" gorm:"type:varchar(36);index;not null"`
	WardID         string        `json:"wardId" gorm:"type:varchar(36);index;not null"`
	Address        *string       `json:"address,omitempty" gorm:"type:varchar(500)"`
	Latitude       *float64      `json:"latitude,omitempty"`
	Longitude      *float64      `json:"longitude,omitempty"`
	IsActive       bool          `json:"isActive" gorm:"not null;default:true;index"`
	Constituency   *Constituency `json:"constituency,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	Ward           *Ward         `json:"ward,omitempty" gorm:"constraint:OnDelete:RESTRICT"`

	VoterRegistrations []VoterRegistration `json:"voterRegistrations,omitempty"`
	ElectionResults    []ElectionResult    `json:"electionResults,omitempty"`
	Incidents          []Incident          `json:"incidents,omitempty"`

	VoterRegistrationCount int64 `json:"voterRegistrationCount" gorm:"->;-:migration"`
	ElectionResultCount    int64 `json:"electionResultCount" gorm:"->;-:migration"`
	IncidentCount          int64 `json:"incidentCount" gorm:"->;-:migration"`
}

// VoterRegistration is one snapshot of a station's register. The active
// registration is the newest row with IsActive set.
type VoterRegistration struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PollingStationID string    `json:"pollingStationId" gorm:"type:varchar(36);index;not null"`
	RegisteredVoters int       `json:"registeredVoters" gorm:"not null;check:registered_voters >= 0"`
	Source           string    `json:"source" gorm:"type:varchar(100);not null"`
	IsActive         bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt        time.Time `json:"createdAt" gorm:"index"`
}

func (v *VoterRegistration) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

func (v VoterRegistration) PrimaryID() string { return v.ID }

const ImportSource = "IEBC Import"
