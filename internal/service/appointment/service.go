package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

var (
	ErrSlotTaken = errors.New("slot already taken")
	ErrCancelled = errors.New("appointment is cancelled")
)

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type SlotResolver interface {
	ResolveSlots(ctx context.Context, doctorID uuid.UUID, day string) ([]time.Time, error)
}

type Service struct {
	repo     repository.AppointmentRepository
	users    UserLookup
	resolver SlotResolver
	events   event.Emitter
	locks    *keyedLocker
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	users UserLookup,
	resolver SlotResolver,
	events event.Emitter,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if events == nil {
		events = event.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		users:    users,
		resolver: resolver,
		events:   events,
		locks:    newKeyedLocker(),
		logger:   log,
		metrics:  m,
	}
}

func (s *Service) Treatments() []model.TreatmentType {
	return model.Treatments()
}

func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day string) ([]time.Time, error) {
	return s.resolver.ResolveSlots(ctx, doctorID, day)
}

// Book creates a scheduled appointment. Patients book for themselves; a
// doctor books for a named patient, by default with themself.
func (s *Service) Book(ctx context.Context, caller model.Principal, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	patientID, doctorID, err := s.parties(caller, req)
	if err != nil {
		return nil, err
	}

	if _, err := s.lookup(ctx, doctorID, model.RoleDoctor); err != nil {
		return nil, err
	}
	if caller.IsDoctor() {
		if _, err := s.lookup(ctx, patientID, model.RolePatient); err != nil {
			return nil, err
		}
	}

	apt := &model.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Type:      req.Type,
		Date:      req.Date.UTC(),
		Status:    model.AppointmentStatusScheduled,
	}

	if err := s.insertIfFree(ctx, apt); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AppointmentsBooked.Inc()
	}
	s.emit(ctx, model.EventAppointmentCreated, apt)
	return apt, nil
}

func (s *Service) parties(caller model.Principal, req *model.CreateAppointmentRequest) (patientID, doctorID uuid.UUID, err error) {
	if caller.IsDoctor() {
		if req.PatientID == "" {
			return uuid.Nil, uuid.Nil, apperrors.BadRequest("patientId is required", nil)
		}
		patientID, err = uuid.Parse(req.PatientID)
		if err != nil {
			return uuid.Nil, uuid.Nil, apperrors.BadRequest("invalid patientId", err)
		}
		doctorID = caller.UserID
		if req.DoctorID != "" {
			if doctorID, err = uuid.Parse(req.DoctorID); err != nil {
				return uuid.Nil, uuid.Nil, apperrors.BadRequest("invalid doctorId", err)
			}
		}
		return patientID, doctorID, nil
	}

	if req.DoctorID == "" {
		return uuid.Nil, uuid.Nil, apperrors.BadRequest("doctorId is required", nil)
	}
	if doctorID, err = uuid.Parse(req.DoctorID); err != nil {
		return uuid.Nil, uuid.Nil, apperrors.BadRequest("invalid doctorId", err)
	}
	return caller.UserID, doctorID, nil
}

func (s *Service) lookup(ctx context.Context, id uuid.UUID, role model.Role) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound(string(role), err)
		}
		return nil, apperrors.Internal(err)
	}
	if user.Role != role {
		return nil, apperrors.NotFound(string(role), nil)
	}
	return user, nil
}

// insertIfFree serialises check-then-insert per doctor. The partial unique
// index on (doctor_id, date) catches races with other processes.
func (s *Service) insertIfFree(ctx context.Context, apt *model.Appointment) error {
	unlock := s.locks.Lock(apt.DoctorID)
	defer unlock()

	taken, err := s.repo.ExistsScheduledAt(ctx, apt.DoctorID, apt.Date, nil)
	if err != nil {
		return apperrors.Internal(err)
	}
	if taken {
		return s.slotTaken(nil)
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.slotTaken(err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) slotTaken(cause error) error {
	if s.metrics != nil {
		s.metrics.BookingConflicts.Inc()
	}
	if cause == nil {
		cause = ErrSlotTaken
	}
	return apperrors.Conflict("Slot already taken", cause)
}

// ListMine returns the caller's appointments: as patient, or as doctor.
func (s *Service) ListMine(ctx context.Context, caller model.Principal) ([]*model.AppointmentDetails, error) {
	var (
		list []*model.AppointmentDetails
		err  error
	)
	if caller.IsDoctor() {
		list, err = s.repo.ListForDoctor(ctx, caller.UserID, nil)
	} else {
		list, err = s.repo.ListForPatient(ctx, caller.UserID)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

func (s *Service) ListScheduledForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentDetails, error) {
	status := model.AppointmentStatusScheduled
	list, err := s.repo.ListForDoctor(ctx, doctorID, &status)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// PatientHistory lists a patient's appointments with the doctor, newest first.
func (s *Service) PatientHistory(ctx context.Context, doctorID, patientID uuid.UUID) ([]*model.AppointmentDetails, error) {
	list, err := s.repo.ListForDoctorAndPatient(ctx, doctorID, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

func (s *Service) getForParticipant(ctx context.Context, caller model.Principal, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !apt.IsParticipant(caller.UserID) {
		return nil, apperrors.Forbidden("Not allowed", nil)
	}
	return apt, nil
}

// Update changes the date and/or type of a scheduled appointment.
func (s *Service) Update(ctx context.Context, caller model.Principal, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.getForParticipant(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if apt.Status == model.AppointmentStatusCancelled {
		return nil, apperrors.Conflict("Appointment is cancelled", ErrCancelled)
	}

	if req.Type != nil {
		apt.Type = *req.Type
	}

	if req.Date != nil && !req.Date.Equal(apt.Date) {
		apt.Date = req.Date.UTC()

		unlock := s.locks.Lock(apt.DoctorID)
		defer unlock()

		taken, err := s.repo.ExistsScheduledAt(ctx, apt.DoctorID, apt.Date, &apt.ID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if taken {
			return nil, s.slotTaken(nil)
		}
	}

	if err := s.repo.Update(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.slotTaken(err)
		}
		return nil, apperrors.Internal(err)
	}

	s.emit(ctx, model.EventAppointmentUpdated, apt)
	return apt, nil
}

// Cancel marks the appointment cancelled. Cancelling twice is not an error.
func (s *Service) Cancel(ctx context.Context, caller model.Principal, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.getForParticipant(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if apt.Status == model.AppointmentStatusCancelled {
		return apt, nil
	}

	apt.Status = model.AppointmentStatusCancelled
	if err := s.repo.Update(ctx, apt); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to cancel appointment: %w", err))
	}

	if s.metrics != nil {
		s.metrics.AppointmentsCancelled.Inc()
	}
	s.emit(ctx, model.EventAppointmentCancelled, apt)
	return apt, nil
}

// emit records the event. The appointment change is already committed, so a
// failure is logged rather than returned.
func (s *Service) emit(ctx context.Context, eventType string, apt *model.Appointment) {
	payload := map[string]interface{}{
		"appointmentId": apt.ID,
		"doctorId":      apt.DoctorID,
		"patientId":     apt.PatientID,
		"type":          apt.Type,
		"date":          apt.Date,
		"status":        apt.Status,
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.logger.Error(err, "failed to record event",
			"event_type", eventType,
			"appointment_id", apt.ID.String())
	}
}
