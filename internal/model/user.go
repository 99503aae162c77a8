package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Role is closed: a user is either the doctor or a patient.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleDoctor, RolePatient:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Weekday is an English weekday name as used in availability windows.
type Weekday string

var weekdays = [...]Weekday{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

// ParseWeekday matches names exactly ("Tuesday", not "tuesday").
func ParseWeekday(s string) (time.Weekday, bool) {
	for i, d := range weekdays {
		if string(d) == s {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidClock reports whether s is a zero-padded 24h "HH:MM".
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// AvailabilityWindow is a weekly recurring opening interval. From and To are
// zero-padded 24h clock times.
type AvailabilityWindow struct {
	Day  Weekday `json:"day" binding:"required,weekday"`
	From string  `json:"from" binding:"required,clock"`
	To   string  `json:"to" binding:"required,clock"`
}

// Availability is stored as a JSON array column.
type Availability []AvailabilityWindow

// ForDay returns the first window for day. Later duplicates are ignored.
func (a Availability) ForDay(day string) (AvailabilityWindow, bool) {
	for _, w := range a {
		if string(w.Day) == day {
			return w, true
		}
	}
	return AvailabilityWindow{}, false
}

func (a Availability) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Availability) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Availability{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Availability", src)
	}
	return json.Unmarshal(data, a)
}

type User struct {
	Base
	Phone        string       `json:"phone" db:"phone"`
	Email        *string      `json:"email,omitempty" db:"email"`
	Name         string       `json:"name" db:"name"`
	Role         Role         `json:"role" db:"role"`
	Availability Availability `json:"availability" db:"availability"`
}

func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}

func (u *User) Ref() PartyRef {
	return PartyRef{ID: u.ID, Name: u.Name, Phone: u.Phone}
}

type CreatePatientRequest struct {
	Phone string `json:"phone" binding:"required,il_mobile"`
	Name  string `json:"name" binding:"required"`
}

type UpdateAvailabilityRequest struct {
	Availability []AvailabilityWindow `json:"availability" binding:"dive"`
}
