package models

import "time"

type Role string

const (
	RoleSuperAdmin                      Role = "SUPER_ADMIN"
	RoleCentralCommandAdmin             Role = "CENTRAL_COMMAND_ADMIN"
	RoleCentralCommandUser              Role = "CENTRAL_COMMAND_USER"
	RolePresidentialElectionObserver    Role = "PRESIDENTIAL_ELECTION_OBSERVER"
	RoleParliamentaryElectionObserver   Role = "PARLIAMENTARY_ELECTION_OBSERVER"
	RoleLocalGovernmentElectionObserver Role = "LOCAL_GOVERNMENT_ELECTION_OBSERVER"
	RoleSenatorialElectionObserver      Role = "SENATORIAL_ELECTION_OBSERVER"
	RoleGubernatorialElectionObserver   Role = "GUBERNATORIAL_ELECTION_OBSERVER"
	RoleCountyLevelSupervisor           Role = "COUNTY_LEVEL_SUPERVISOR"
	RoleConstituencyLevelSupervisor     Role = "CONSTITUENCY_LEVEL_SUPERVISOR"
	RoleCountyAssemblyWardSupervisor    Role = "COUNTY_ASSEMBLY_WARD_SUPERVISOR"
)

var AdminRoles = []Role{RoleSuperAdmin, RoleCentralCommandAdmin}

var AllRoles = []Role{
	RoleSuperAdmin,
	RoleCentralCommandAdmin,
	RoleCentralCommandUser,
	RolePresidentialElectionObserver,
	RoleParliamentaryElectionObserver,
	RoleLocalGovernmentElectionObserver,
	RoleSenatorialElectionObserver,
	RoleGubernatorialElectionObserver,
	RoleCountyLevelSupervisor,
	RoleConstituencyLevelSupervisor,
	RoleCountyAssemblyWardSupervisor,
}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	Base
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string     `json:"username" gorm:"type:varchar(30);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null"`
	FirstName    string     `json:"firstName" gorm:"type:varchar(50);not null"`
	LastName     string     `json:"lastName" gorm:"type:varchar(50);not null"`
	PhoneNumber  *string    `json:"phoneNumber,omitempty" gorm:"type:varchar(30)"`
	IMEI         *string    `json:"imei,omitempty" gorm:"column:imei;type:varchar(15);uniqueIndex"`
	Role         Role       `json:"role" gorm:"type:varchar(40);index;not null"`
	IsActive     bool       `json:"isActive" gorm:"not null;default:true;index"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func (u User) HasDevice() bool {
	return u.IMEI != nil && *u.IMEI != ""
}

// RefreshToken is persisted as a redis hash, not a table.
type RefreshToken struct {
	ID        string    `json:"id" mapstructure:"id"`
	UserID    string    `json:"userId" mapstructure:"user_id"`
	Token     string    `json:"-" mapstructure:"token"`
	ExpiresAt time.Time `json:"expiresAt" mapstructure:"-"`
	CreatedAt time.Time `json:"createdAt" mapstructure:"-"`
}
