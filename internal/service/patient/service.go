package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/phone"
)

type PatientService interface {
	ListPatients(ctx context.Context) ([]model.PartyRef, error)
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.User, error)
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

func (s *Service) ListPatients(ctx context.Context) ([]model.PartyRef, error) {
	users, err := s.repo.ListByRole(ctx, model.RolePatient)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	patients := make([]model.PartyRef, 0, len(users))
	for _, u := range users {
		patients = append(patients, u.Ref())
	}
	return patients, nil
}

// CreatePatient registers a patient on the doctor's behalf. The patient can
// later sign in with the same phone.
func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	number := strings.TrimSpace(req.Phone)
	if name == "" || number == "" {
		return nil, apperrors.BadRequest("Name and phone are required", nil)
	}
	if !phone.IsLocalMobile(number) {
		return nil, apperrors.BadRequest("Phone must start with 05 and contain 10 digits", nil)
	}

	exists, err := s.repo.ExistsByPhone(ctx, number)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if exists {
		return nil, apperrors.BadRequest("Patient already exists", nil)
	}

	user := &model.User{
		Phone:        number,
		Name:         name,
		Role:         model.RolePatient,
		Availability: model.Availability{},
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest("Patient already exists", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("patient created", "patient_id", user.ID.String())
	return user, nil
}
