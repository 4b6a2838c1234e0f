package services

import "github.com/saxenaaman628/election-observer/internal/query"

func sorts(table string, extra map[string]string) map[string]string {
	m := map[string]string{
		"createdAt": table + ".created_at",
		"updatedAt": table + ".updated_at",
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

var CountySpec = &query.Spec{
	Table:        "counties",
	DefaultLimit: 50,
	DefaultSort:  "name",
	DefaultOrder: "asc",
	Sortable:     sorts("counties", map[string]string{"name": "counties.name", "code": "counties.code"}),
	SearchFields: []string{"counties.name", "counties.code"},
	Fields: map[string]string{
		"code":      "counties.code",
		"name":      "counties.name",
		"createdAt": "counties.created_at",
		"updatedAt": "counties.updated_at",
	},
	AlwaysColumns: []string{"counties.id"},
	AlwaysKeys:    []string{"id", "constituencyCount"},
	Counts: []string{
		"(SELECT COUNT(*) FROM constituencies WHERE constituencies.county_id = counties.id) AS constituency_count",
	},
}

var ConstituencySpec = &query.Spec{
	Table:        "constituencies",
	DefaultLimit: 50,
	DefaultSort:  "name",
	DefaultOrder: "asc",
	Sortable:     sorts("constituencies", map[string]string{"name": "constituencies.name", "code": "constituencies.code"}),
	SearchFields: []string{"constituencies.name", "constituencies.code"},
	Fields: map[string]string{
		"code":      "constituencies.code",
		"name":      "constituencies.name",
		"createdAt": "constituencies.created_at",
		"updatedAt": "constituencies.updated_at",
	},
	AlwaysColumns: []string{"constituencies.id", "constituencies.county_id"},
	AlwaysKeys:    []string{"id", "countyId", "county", "wardCount", "pollingStationCount"},
	Counts: []string{
		"(SELECT COUNT(*) FROM wards WHERE wards.constituency_id = constituencies.id) AS ward_count",
		"(SELECT COUNT(*) FROM polling_stations WHERE polling_stations.constituency_id = constituencies.id) AS polling_station_count",
	},
}

var WardSpec = &query.Spec{
	Table:        "wards",
	DefaultLimit: 50,
	DefaultSort:  "name",
	DefaultOrder: "asc",
	Sortable:     sorts("wards", map[string]string{"name": "wards.name", "code": "wards.code"}),
	SearchFields: []string{"wards.name", "wards.code"},
	Fields: map[string]string{
		"code":      "wards.code",
		"name":      "wards.name",
		"createdAt": "wards.created_at",
		"updatedAt": "wards.updated_at",
	},
	AlwaysColumns: []string{"wards.id", "wards.constituency_id"},
	AlwaysKeys:    []string{"id", "constituencyId", "constituency", "pollingStationCount"},
	Counts: []string{
		"(SELECT COUNT(*) FROM polling_stations WHERE polling_stations.ward_id = wards.id) AS polling_station_count",
	},
}

var StationSpec = &query.Spec{
	Table:        "polling_stations",
	DefaultLimit: 50,
	DefaultSort:  "name",
	DefaultOrder: "asc",
	Sortable: sorts("polling_stations", map[string]string{
		"name": "polling_stations.name",
		"code": "polling_stations.code",
	}),
	SearchFields: []string{"polling_stations.name", "polling_stations.code", "polling_stations.address"},
	Fields: map[string]string{
		"code":      "polling_stations.code",
		"name":      "polling_stations.name",
		"address":   "polling_stations.address",
		"latitude":  "polling_stations.latitude",
		"longitude": "polling_stations.longitude",
		"isActive":  "polling_stations.is_active",
		"createdAt": "polling_stations.created_at",
		"updatedAt": "polling_stations.updated_at",
	},
	AlwaysColumns: []string{"polling_stations.id", "polling_stations.constituency_id", "polling_stations.ward_id"},
	AlwaysKeys: []string{
		"id", "constituencyId", "wardId", "constituency", "ward",
		"voterRegistrationCount", "electionResultCount", "incidentCount",
	},
	Counts: []string{
		"(SELECT COUNT(*) FROM voter_registrations WHERE voter_registrations.polling_station_id = polling_stations.id) AS voter_registration_count",
		"(SELECT COUNT(*) FROM election_results WHERE election_results.polling_station_id = polling_stations.id) AS election_result_count",
		"(SELECT COUNT(*) FROM incidents WHERE incidents.polling_station_id = polling_stations.id) AS incident_count",
	},
	AllowCursor: true,
}

var UserSpec = &query.Spec{
	Table:        "users",
	DefaultLimit: 10,
	DefaultSort:  "createdAt",
	DefaultOrder: "desc",
	Sortable: sorts("users", map[string]string{
		"email":       "users.email",
		"username":    "users.username",
		"firstName":   "users.first_name",
		"lastName":    "users.last_name",
		"role":        "users.role",
		"lastLoginAt": "users.last_login_at",
	}),
	SearchFields: []string{"users.first_name", "users.last_name", "users.email", "users.username"},
	NamePair:     &query.NamePair{First: "users.first_name", Last: "users.last_name"},
}

var CandidateSpec = &query.Spec{
	Table:        "candidates",
	DefaultLimit: 10,
	DefaultSort:  "name",
	DefaultOrder: "asc",
	Sortable: sorts("candidates", map[string]string{
		"name":         "candidates.name",
		"party":        "candidates.party",
		"electionType": "candidates.election_type",
	}),
	SearchFields: []string{"candidates.name", "candidates.party"},
	Counts: []string{
		"(SELECT COUNT(*) FROM election_results WHERE election_results.candidate_id = candidates.id) AS election_result_count",
	},
}

var ResultSpec = &query.Spec{
	Table:        "election_results",
	DefaultLimit: 10,
	DefaultSort:  "createdAt",
	DefaultOrder: "desc",
	Sortable: sorts("election_results", map[string]string{
		"votes":        "election_results.votes",
		"totalVotes":   "election_results.total_votes",
		"voterTurnout": "election_results.voter_turnout",
	}),
}

var IncidentSpec = &query.Spec{
	Table:        "incidents",
	DefaultLimit: 10,
	DefaultSort:  "createdAt",
	DefaultOrder: "desc",
	Sortable: sorts("incidents", map[string]string{
		"title":        "incidents.title",
		"severity":     "incidents.severity",
		"incidentType": "incidents.incident_type",
	}),
	SearchFields: []string{"incidents.title", "incidents.description"},
}

var AuditSpec = &query.Spec{
	Table:        "audit_logs",
	DefaultLimit: 20,
	DefaultSort:  "createdAt",
	DefaultOrder: "desc",
	Sortable: map[string]string{
		"createdAt":  "audit_logs.created_at",
		"action":     "audit_logs.action",
		"entityType": "audit_logs.entity_type",
	},
}
