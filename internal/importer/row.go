// Package importer reconciles flat polling-station rows into the
// county/constituency/ward/station hierarchy.
package importer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Row is one flat polling-station record. The older field names
// cawCode/cawName/pollingStationCode/pollingStationName are accepted on input.
type Row struct {
	CountyCode       string `json:"countyCode" binding:"required"`
	CountyName       string `json:"countyName" binding:"required"`
	ConstCode        string `json:"constCode" binding:"required"`
	ConstName        string `json:"constName" binding:"required"`
	WardCode         string `json:"wardCode" binding:"required"`
	WardName         string `json:"wardName" binding:"required"`
	RegCentreCode    string `json:"regCentreCode"`
	RegCentreName    string `json:"regCentreName"`
	StationCode      string `json:"stationCode" binding:"required"`
	StationName      string `json:"stationName" binding:"required"`
	RegisteredVoters int    `json:"registeredVoters" binding:"min=0"`
}

func (r *Row) UnmarshalJSON(data []byte) error {
	type plain Row
	var aux struct {
		plain
		CawCode            string `json:"cawCode"`
		CawName            string `json:"cawName"`
		PollingStationCode string `json:"pollingStationCode"`
		PollingStationName string `json:"pollingStationName"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Row(aux.plain)
	if r.WardCode == "" {
		r.WardCode = aux.CawCode
	}
	if r.WardName == "" {
		r.WardName = aux.CawName
	}
	if r.StationCode == "" {
		r.StationCode = aux.PollingStationCode
	}
	if r.StationName == "" {
		r.StationName = aux.PollingStationName
	}
	return nil
}

// Normalize trims every text field.
func (r *Row) Normalize() {
	for _, f := range []*string{
		&r.CountyCode, &r.CountyName, &r.ConstCode, &r.ConstName, &r.WardCode, &r.WardName,
		&r.RegCentreCode, &r.RegCentreName, &r.StationCode, &r.StationName,
	} {
		*f = strings.TrimSpace(*f)
	}
}

// Validate reports the first missing required field.
func (r Row) Validate() error {
	required := []struct {
		name, value string
	}{
		{"countyCode", r.CountyCode},
		{"countyName", r.CountyName},
		{"constCode", r.ConstCode},
		{"constName", r.ConstName},
		{"wardCode", r.WardCode},
		{"wardName", r.WardName},
		{"stationCode", r.StationCode},
		{"stationName", r.StationName},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%q is required", f.name)
		}
	}
	if r.RegisteredVoters < 0 {
		return fmt.Errorf("\"registeredVoters\" must be greater than or equal to 0")
	}
	return nil
}

type countyKey struct {
	code, name string
}

type constituencyKey struct {
	code, name, countyID string
}

type wardKey struct {
	code, name, constituencyID string
}
