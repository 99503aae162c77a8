package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (
			id, doctor_id, patient_id, title, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.DoctorID,
		p.PatientID,
		p.Title,
		p.Notes,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", mapError(err))
	}
	return nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	query := `
		SELECT id, doctor_id, patient_id, title, notes, created_at, updated_at
		FROM prescriptions
		WHERE id = $1
	`
	var p model.Prescription
	if err := r.get(ctx, &p, "prescription", query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepository) ListByDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.Prescription, error) {
	query := `
		SELECT id, doctor_id, patient_id, title, notes, created_at, updated_at
		FROM prescriptions
		WHERE doctor_id = $1 AND patient_id = $2
		ORDER BY created_at DESC
	`
	list := []*model.Prescription{}
	if err := r.db.SelectContext(ctx, &list, query, doctorID, patientID); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return list, nil
}

func (r *prescriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prescription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("prescription: %w", repository.ErrNotFound)
	}
	return nil
}
