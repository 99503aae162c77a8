package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

const appointmentColumns = `id, patient_id, doctor_id, type, date, status, created_at, updated_at`

const appointmentDetailsSelect = `
	SELECT a.id, a.patient_id, a.doctor_id, a.type, a.date, a.status,
		   a.created_at, a.updated_at,
		   p.id AS "patient.id", p.name AS "patient.name", p.phone AS "patient.phone",
		   d.id AS "doctor.id", d.name AS "doctor.name", d.phone AS "doctor.phone"
	FROM appointments a
	JOIN users p ON p.id = a.patient_id
	JOIN users d ON d.id = a.doctor_id
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, type, date, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Type,
		appointment.Date,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapError(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.get(ctx, &appointment, "appointment", query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET type = $1, date = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	appointment.UpdatedAt = time.Now().UTC()

	return r.execOne(ctx, "appointment", query,
		appointment.Type,
		appointment.Date,
		appointment.Status,
		appointment.UpdatedAt,
		appointment.ID,
	)
}

func (r *appointmentRepository) FindScheduled(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND status = $2
		AND date >= $3
		AND date <= $4
		ORDER BY date ASC
	`
	appointments := []*model.Appointment{}
	err := r.db.SelectContext(ctx, &appointments, query, doctorID, model.AppointmentStatusScheduled, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to find scheduled appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ExistsScheduledAt(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND status = $2
			AND date = $3
	`
	args := []interface{}{doctorID, model.AppointmentStatusScheduled, date}

	if excludeID != nil {
		query += " AND id <> $4"
		args = append(args, *excludeID)
	}

	query += ")"

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) GetDetails(ctx context.Context, id uuid.UUID) (*model.AppointmentDetails, error) {
	query := appointmentDetailsSelect + ` WHERE a.id = $1`

	var details model.AppointmentDetails
	if err := r.get(ctx, &details, "appointment", query, id); err != nil {
		return nil, err
	}
	return &details, nil
}

func (r *appointmentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetails, error) {
	query := appointmentDetailsSelect + ` WHERE a.patient_id = $1 ORDER BY a.date ASC`
	return r.selectDetails(ctx, query, patientID)
}

func (r *appointmentRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, status *model.AppointmentStatus) ([]*model.AppointmentDetails, error) {
	query := appointmentDetailsSelect + ` WHERE a.doctor_id = $1`
	args := []interface{}{doctorID}

	if status != nil {
		query += " AND a.status = $2"
		args = append(args, *status)
	}

	query += " ORDER BY a.date ASC"
	return r.selectDetails(ctx, query, args...)
}

func (r *appointmentRepository) ListForDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.AppointmentDetails, error) {
	query := appointmentDetailsSelect + ` WHERE a.doctor_id = $1 AND a.patient_id = $2 ORDER BY a.date DESC`
	return r.selectDetails(ctx, query, doctorID, patientID)
}

func (r *appointmentRepository) selectDetails(ctx context.Context, query string, args ...interface{}) ([]*model.AppointmentDetails, error) {
	appointments := []*model.AppointmentDetails{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
