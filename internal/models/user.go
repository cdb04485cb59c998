package models

import (
	"math"
	"time"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"

	// LookingForAll means the profile owner is open to every gender.
	LookingForAll = "all"
)

type User struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Username         string     `json:"username" gorm:"uniqueIndex;size:80;not null"`
	Email            string     `json:"email" gorm:"uniqueIndex;size:120;not null"`
	PasswordHash     string     `json:"-" gorm:"size:255;not null"`
	IsAdmin          bool       `json:"is_admin" gorm:"default:false"`
	AcceptedTerms    bool       `json:"accepted_terms" gorm:"default:false;not null"`
	ResetToken       *string    `json:"-" gorm:"uniqueIndex;size:100"`
	ResetTokenExpiry *time.Time `json:"-"`
	LastSeen         *time.Time `json:"last_seen,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Profile          *Profile   `json:"profile,omitempty"`
}

type Profile struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	UserID         uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	FirstName      string     `json:"first_name" gorm:"size:50"`
	LastName       string     `json:"last_name" gorm:"size:50"`
	DateOfBirth    time.Time  `json:"date_of_birth" gorm:"not null"`
	Gender         string     `json:"gender" gorm:"size:20;not null"` // male, female, other
	LookingFor     string     `json:"looking_for" gorm:"size:20;not null"`
	Bio            *string    `json:"bio,omitempty"`
	ProfilePicture *string    `json:"profile_picture,omitempty" gorm:"size:255"`
	City           *string    `json:"city,omitempty" gorm:"size:100"`
	Country        *string    `json:"country,omitempty" gorm:"size:100"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Interests      []Interest `json:"interests,omitempty" gorm:"many2many:profile_interests;"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Age computes full years at the given instant, accounting for a birthday
// later in the current year.
func (p *Profile) Age(now time.Time) int {
	age := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		age--
	}
	return age
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance to the other profile, or nil
// when either side has no coordinates.
func (p *Profile) DistanceKm(other *Profile) *float64 {
	if p == nil || other == nil {
		return nil
	}
	if p.Latitude == nil || p.Longitude == nil || other.Latitude == nil || other.Longitude == nil {
		return nil
	}

	lat1 := *p.Latitude * math.Pi / 180
	lat2 := *other.Latitude * math.Pi / 180
	dLat := (*other.Latitude - *p.Latitude) * math.Pi / 180
	dLon := (*other.Longitude - *p.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return &d
}

type Interest struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;size:50;not null"`
}

type Block struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BlockerID uint      `json:"blocker_id" gorm:"not null;uniqueIndex:idx_blocker_blocked"`
	BlockedID uint      `json:"blocked_id" gorm:"not null;uniqueIndex:idx_blocker_blocked"`
	CreatedAt time.Time `json:"created_at"`
	Blocker   User      `json:"blocker,omitempty" gorm:"foreignKey:BlockerID"`
	Blocked   User      `json:"blocked,omitempty" gorm:"foreignKey:BlockedID"`
}

type Report struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ReporterID uint      `json:"reporter_id" gorm:"not null;uniqueIndex:idx_reporter_reported"`
	ReportedID uint      `json:"reported_id" gorm:"not null;uniqueIndex:idx_reporter_reported"`
	Reason     string    `json:"reason" gorm:"not null"`
	Status     string    `json:"status" gorm:"size:20;default:pending"` // pending, reviewed, resolved, dismissed
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Reporter   User      `json:"reporter,omitempty" gorm:"foreignKey:ReporterID"`
	Reported   User      `json:"reported,omitempty" gorm:"foreignKey:ReportedID"`
}
