package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

// Scheduled is the only state that can change; Cancelled is terminal.
const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type TreatmentType string

const (
	TreatmentLipFiller      TreatmentType = "Lip Filler"
	TreatmentCheekFiller    TreatmentType = "Cheek Filler"
	TreatmentForeheadFiller TreatmentType = "Forehead Filler"
	TreatmentHairLaser      TreatmentType = "Hair Laser"
)

// Treatments lists the bookable treatment types in display order.
func Treatments() []TreatmentType {
	return []TreatmentType{
		TreatmentLipFiller,
		TreatmentCheekFiller,
		TreatmentForeheadFiller,
		TreatmentHairLaser,
	}
}

func (t TreatmentType) Valid() bool {
	for _, v := range Treatments() {
		if v == t {
			return true
		}
	}
	return false
}

type Appointment struct {
	Base
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Type      TreatmentType     `db:"type" json:"type"`
	Date      time.Time         `db:"date" json:"date"`
	Status    AppointmentStatus `db:"status" json:"status"`
}

func (a *Appointment) IsParticipant(userID uuid.UUID) bool {
	return a.PatientID == userID || a.DoctorID == userID
}

// AppointmentDetails is an appointment with both participants resolved.
type AppointmentDetails struct {
	Appointment
	Patient PartyRef `db:"patient" json:"patient"`
	Doctor  PartyRef `db:"doctor" json:"doctor"`
}

type CreateAppointmentRequest struct {
	DoctorID  string        `json:"doctorId"`
	PatientID string        `json:"patientId"`
	Type      TreatmentType `json:"type" binding:"required,treatment"`
	Date      time.Time     `json:"date" binding:"required"`
}

type UpdateAppointmentRequest struct {
	Date *time.Time     `json:"date"`
	Type *TreatmentType `json:"type" binding:"omitempty,treatment"`
}
