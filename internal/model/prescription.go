package model

import "github.com/google/uuid"

const DefaultPrescriptionTitle = "מרשם"

type Prescription struct {
	Base
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	Title     string    `db:"title" json:"title"`
	Notes     string    `db:"notes" json:"notes"`
}

type CreatePrescriptionRequest struct {
	PatientID string `json:"patientId" binding:"required,uuid"`
	Title     string `json:"title"`
	Notes     string `json:"notes" binding:"required"`
}
