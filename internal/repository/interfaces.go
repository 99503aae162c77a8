package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByPhone(ctx context.Context, phone string) (*model.User, error)
		ExistsByPhone(ctx context.Context, phone string) (bool, error)
		ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
		UpdateAvailability(ctx context.Context, id uuid.UUID, availability model.Availability) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		// FindScheduled returns the doctor's scheduled appointments with
		// start <= date <= end, ordered by date.
		FindScheduled(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error)
		ExistsScheduledAt(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeID *uuid.UUID) (bool, error)
		GetDetails(ctx context.Context, id uuid.UUID) (*model.AppointmentDetails, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetails, error)
		ListForDoctor(ctx context.Context, doctorID uuid.UUID, status *model.AppointmentStatus) ([]*model.AppointmentDetails, error)
		ListForDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.AppointmentDetails, error)
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, prescription *model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		ListByDoctorAndPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.Prescription, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		BeginTx(ctx context.Context) (*sqlx.Tx, error)
		GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
