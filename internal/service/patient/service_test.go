package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	args := m.Called(ctx, phone)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	args := m.Called(ctx, role)
	u, _ := args.Get(0).([]*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) UpdateAvailability(ctx context.Context, id uuid.UUID, a model.Availability) error {
	return m.Called(ctx, id, a).Error(0)
}

func TestCreatePatient(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, nil)

	repo.On("ExistsByPhone", mock.Anything, "0521234567").Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Role == model.RolePatient && u.Name == "Dana" && u.Phone == "0521234567"
	})).Return(nil)

	user, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{Phone: " 0521234567 ", Name: " Dana "})
	require.NoError(t, err)
	assert.Equal(t, model.RolePatient, user.Role)
	repo.AssertExpectations(t)
}

func TestCreatePatient_Duplicate(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, nil)

	repo.On("ExistsByPhone", mock.Anything, "0521234567").Return(true, nil)

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{Phone: "0521234567", Name: "Dana"})
	require.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
	appErr, _ := apperrors.As(err)
	assert.Equal(t, "Patient already exists", appErr.Message)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePatient_RaceOnUniquePhone(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, nil)

	repo.On("ExistsByPhone", mock.Anything, "0521234567").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{Phone: "0521234567", Name: "Dana"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestCreatePatient_Validation(t *testing.T) {
	svc := NewService(new(mockUserRepo), nil)

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{Phone: "0521234567"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))

	_, err = svc.CreatePatient(context.Background(), &model.CreatePatientRequest{Phone: "+972521234567", Name: "Dana"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestListPatients(t *testing.T) {
	repo := new(mockUserRepo)
	svc := NewService(repo, nil)
	id := uuid.New()

	repo.On("ListByRole", mock.Anything, model.RolePatient).Return([]*model.User{
		{Base: model.Base{ID: id}, Name: "Dana", Phone: "0521234567", Role: model.RolePatient},
	}, nil)

	list, err := svc.ListPatients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.PartyRef{{ID: id, Name: "Dana", Phone: "0521234567"}}, list)
}
