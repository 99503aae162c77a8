package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// DoctorServicer is the doctor directory.
type DoctorServicer interface {
	ListDoctors(ctx context.Context) ([]*model.User, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*model.User, error)
	SetAvailability(ctx context.Context, doctorID uuid.UUID, windows []model.AvailabilityWindow) (*model.User, error)
}

type Service struct {
	repo   repository.UserRepository
	logger *logger.Logger
}

func NewService(repo repository.UserRepository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, logger: log}
}

func (s *Service) ListDoctors(ctx context.Context) ([]*model.User, error) {
	doctors, err := s.repo.ListByRole(ctx, model.RoleDoctor)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !user.IsDoctor() {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return user, nil
}

// SetAvailability replaces the doctor's weekly windows.
func (s *Service) SetAvailability(ctx context.Context, doctorID uuid.UUID, windows []model.AvailabilityWindow) (*model.User, error) {
	if err := validateWindows(windows); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	doctor, err := s.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	availability := model.Availability(windows)
	if availability == nil {
		availability = model.Availability{}
	}
	if err := s.repo.UpdateAvailability(ctx, doctorID, availability); err != nil {
		return nil, apperrors.Internal(err)
	}
	doctor.Availability = availability

	s.logger.Info("availability updated", "doctor_id", doctorID.String(), "windows", len(availability))
	return doctor, nil
}

func validateWindows(windows []model.AvailabilityWindow) error {
	seen := make(map[model.Weekday]bool, len(windows))
	for _, w := range windows {
		if _, ok := model.ParseWeekday(string(w.Day)); !ok {
			return fmt.Errorf("invalid day %q", w.Day)
		}
		if seen[w.Day] {
			return fmt.Errorf("duplicate window for %s", w.Day)
		}
		seen[w.Day] = true
		if !model.ValidClock(w.From) || !model.ValidClock(w.To) {
			return fmt.Errorf("invalid time range for %s", w.Day)
		}
		// HH:MM strings order the same way as the times they name.
		if w.From > w.To {
			return fmt.Errorf("window for %s ends before it starts", w.Day)
		}
	}
	return nil
}
