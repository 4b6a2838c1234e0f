package models

type County struct {
	Base
	Code string `json:"code" gorm:"type:varchar(32);uniqueIndex;not null"`
	Name string `json:"name" gorm:"type:varchar(255);index;not null"`

	Constituencies []Constituency `json:"constituencies,omitempty" gorm:"foreignKey:CountyID"`

	ConstituencyCount int64 `json:"constituencyCount" gorm:"->;-:migration"`
}

type Constituency struct {
	Base
	Code     string  `json:"code" gorm:"type:varchar(32);uniqueIndex;not null"`
	Name     string  `json:"name" gorm:"type:varchar(255);index;not null"`
	CountyID string  `json:"countyId" gorm:"type:varchar(36);index;not null"`
	County   *County `json:"county,omitempty" gorm:"constraint:OnDelete:RESTRICT"`

	Wards []Ward `json:"wards,omitempty" gorm:"foreignKey:ConstituencyID"`

	WardCount           int64 `json:"wardCount" gorm:"->;-:migration"`
	PollingStationCount int64 `json:"pollingStationCount" gorm:"->;-:migration"`
}

// Ward is a County Assembly Ward (CAW).
type Ward struct {
	Base
	Code           string        `json:"code" gorm:"type:varchar(32);uniqueIndex;not null"`
	Name           string        `json:"name" gorm:"type:varchar(255);index;not null"`
	ConstituencyID string        `json:"constituencyId" gorm:"type:varchar(36);index;not null"`
	Constituency   *Constituency `json:"constituency,omitempty" gorm:"constraint:OnDelete:RESTRICT"`

	PollingStationCount int64 `json:"pollingStationCount" gorm:"->;-:migration"`
}
