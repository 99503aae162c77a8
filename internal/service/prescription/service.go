package prescription

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type Service struct {
	repo   repository.PrescriptionRepository
	users  UserLookup
	events event.Emitter
	logger *logger.Logger
}

func NewService(repo repository.PrescriptionRepository, users UserLookup, events event.Emitter, log *logger.Logger) *Service {
	if events == nil {
		events = event.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, users: users, events: events, logger: log}
}

// Create writes a prescription by doctorID for a registered patient.
func (s *Service) Create(ctx context.Context, doctorID uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error) {
	notes := strings.TrimSpace(req.Notes)
	if req.PatientID == "" || notes == "" {
		return nil, apperrors.BadRequest("patientId and notes are required", nil)
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid patientId", err)
	}

	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if patient == nil || patient.Role != model.RolePatient {
		return nil, apperrors.NotFound("Patient", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = model.DefaultPrescriptionTitle
	}

	p := &model.Prescription{
		DoctorID:  doctorID,
		PatientID: patientID,
		Title:     title,
		Notes:     notes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.events.Emit(ctx, model.EventPrescriptionCreated, map[string]interface{}{
		"prescriptionId": p.ID,
		"doctorId":       p.DoctorID,
		"patientId":      p.PatientID,
	}); err != nil {
		s.logger.Error(err, "failed to record event", "prescription_id", p.ID.String())
	}
	return p, nil
}

// ListForPatient returns the doctor's prescriptions for patientID, newest first.
func (s *Service) ListForPatient(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.Prescription, error) {
	list, err := s.repo.ListByDoctorAndPatient(ctx, doctorID, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// Delete removes a prescription. Only its author may delete it.
func (s *Service) Delete(ctx context.Context, doctorID, id uuid.UUID) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Prescription", err)
		}
		return apperrors.Internal(err)
	}
	if p.DoctorID != doctorID {
		return apperrors.Forbidden("Not allowed", nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Prescription", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}
