package models

import "time"

type CandidateElectionType string

const (
	Presidential                 CandidateElectionType = "PRESIDENTIAL"
	Parliamentary                CandidateElectionType = "PARLIAMENTARY"
	LocalGovernment              CandidateElectionType = "LOCAL_GOVERNMENT"
	Senatorial                   CandidateElectionType = "SENATORIAL"
	Gubernatorial                CandidateElectionType = "GUBERNATORIAL"
	CountyAssemblyRepresentative CandidateElectionType = "COUNTY_ASSEMBLY_REPRESENTATIVE"
	WomensRepresentative         CandidateElectionType = "WOMENS_REPRESENTATIVE"
)

type ElectionType string

const (
	GeneralElection  ElectionType = "GENERAL_ELECTION"
	RunoffElection   ElectionType = "RUNOFF_ELECTION"
	ByElections      ElectionType = "BY_ELECTIONS"
	PrimaryElections ElectionType = "PRIMARY_ELECTIONS"
)

type Candidate struct {
	Base
	Name           string                `json:"name" gorm:"type:varchar(100);index;not null"`
	Party          *string               `json:"party,omitempty" gorm:"type:varchar(100)"`
	ElectionType   CandidateElectionType `json:"electionType" gorm:"type:varchar(40);index;not null"`
	ConstituencyID *string               `json:"constituencyId,omitempty" gorm:"type:varchar(36);index"`
	WardID         *string               `json:"wardId,omitempty" gorm:"type:varchar(36);index"`
	IsActive       bool                  `json:"isActive" gorm:"not null;default:true"`
	Constituency   *Constituency         `json:"constituency,omitempty"`
	Ward           *Ward                 `json:"ward,omitempty"`

	ElectionResultCount int64 `json:"electionResultCount" gorm:"->;-:migration"`
}

type ElectionResult struct {
	Base
	PollingStationID string          `json:"pollingStationId" gorm:"type:varchar(36);not null;uniqueIndex:idx_result_station_candidate"`
	CandidateID      string          `json:"candidateId" gorm:"type:varchar(36);not null;uniqueIndex:idx_result_station_candidate;index"`
	ElectionType     ElectionType    `json:"electionType" gorm:"type:varchar(40);index;not null"`
	Votes            int             `json:"votes" gorm:"not null"`
	SpoiltVotes      int             `json:"spoiltVotes" gorm:"not null;default:0"`
	TotalVotes       int             `json:"totalVotes" gorm:"not null"`
	VoterTurnout     float64         `json:"voterTurnout" gorm:"not null;default:0"`
	IsVerified       bool            `json:"isVerified" gorm:"not null;default:false;index"`
	VerifiedAt       *time.Time      `json:"verifiedAt,omitempty"`
	ReporterID       string          `json:"reporterId" gorm:"type:varchar(36);index;not null"`
	PollingStation   *PollingStation `json:"pollingStation,omitempty"`
	Candidate        *Candidate      `json:"candidate,omitempty"`
	Reporter         *User           `json:"reporter,omitempty"`
}

type IncidentType string

const (
	Violence          IncidentType = "VIOLENCE"
	VoterIntimidation IncidentType = "VOTER_INTIMIDATION"
	EquipmentFailure  IncidentType = "EQUIPMENT_FAILURE"
	Irregularity      IncidentType = "IRREGULARITY"
	OtherIncident     IncidentType = "OTHER"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type Incident struct {
	Base
	PollingStationID string          `json:"pollingStationId" gorm:"type:varchar(36);index;not null"`
	Title            string          `json:"title" gorm:"type:varchar(200);not null"`
	Description      *string         `json:"description,omitempty" gorm:"type:varchar(1000)"`
	IncidentType     IncidentType    `json:"incidentType" gorm:"type:varchar(40);index;not null"`
	Severity         Severity        `json:"severity" gorm:"type:varchar(20);index;not null"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	IsResolved       bool            `json:"isResolved" gorm:"not null;default:false;index"`
	ResolvedAt       *time.Time      `json:"resolvedAt,omitempty"`
	ReporterID       string          `json:"reporterId" gorm:"type:varchar(36);index;not null"`
	PollingStation   *PollingStation `json:"pollingStation,omitempty"`
	Reporter         *User           `json:"reporter,omitempty"`
}
