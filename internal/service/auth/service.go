package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/sms"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/otpstore"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

var (
	ErrInvalidCode     = errors.New("invalid or expired code")
	ErrTooManyAttempts = errors.New("too many attempts")
)

type channel string

const (
	channelPhone channel = "phone"
	channelEmail channel = "email"
)

func codeKey(ch channel, phone string) string {
	return fmt.Sprintf("otp:%s:%s", ch, phone)
}

func attemptsKey(ch channel, phone string) string {
	return fmt.Sprintf("otp:attempts:%s:%s", ch, phone)
}

type Config struct {
	TTL         time.Duration
	MaxAttempts int
	// DoctorPhone restricts email login to one phone when set.
	DoctorPhone string
	// LeadsToEmail receives every email code when set.
	LeadsToEmail string
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}

type Service struct {
	users   UserStore
	store   otpstore.Store
	hasher  security.CodeHasher
	jwtSvc  auth.JWTService
	sms     sms.Sender
	email   email.Service
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	users UserStore,
	store otpstore.Store,
	hasher security.CodeHasher,
	jwtSvc auth.JWTService,
	smsSender sms.Sender,
	emailSvc email.Service,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		users:   users,
		store:   store,
		hasher:  hasher,
		jwtSvc:  jwtSvc,
		sms:     smsSender,
		email:   emailSvc,
		cfg:     cfg,
		logger:  log,
		metrics: m,
	}
}

// RequestPhoneOTP issues a login code for phone and reports whether the
// phone already belongs to a user.
func (s *Service) RequestPhoneOTP(ctx context.Context, phone string) (*model.RequestOTPResponse, error) {
	exists, err := s.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	code, err := s.issue(ctx, channelPhone, phone)
	if err != nil {
		return nil, err
	}
	if err := s.sms.SendOTP(ctx, phone, code); err != nil {
		s.logger.Error(err, "failed to send sms otp", "phone", phone)
		return nil, apperrors.InternalMessage("Failed to send OTP", err)
	}

	return &model.RequestOTPResponse{
		Message:           "OTP sent",
		AlreadyRegistered: exists,
	}, nil
}

// VerifyPhoneOTP checks the code and signs the user in. An unknown phone is
// registered as a patient, which requires a name.
func (s *Service) VerifyPhoneOTP(ctx context.Context, phone, code, name string) (*model.TokenResponse, error) {
	hashed, err := s.check(ctx, channelPhone, phone, code)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByPhone(ctx, phone)
	unknown := errors.Is(err, repository.ErrNotFound)
	if err != nil && !unknown {
		return nil, apperrors.Internal(err)
	}
	// a missing name must not burn the code
	if unknown && strings.TrimSpace(name) == "" {
		return nil, apperrors.BadRequest("Name is required", nil)
	}

	if err := s.consume(ctx, channelPhone, phone, hashed); err != nil {
		return nil, err
	}
	if unknown {
		user, err = s.register(ctx, phone, name)
		if err != nil {
			return nil, err
		}
	}

	return s.signIn(channelPhone, user)
}

func (s *Service) register(ctx context.Context, phone, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.BadRequest("Name is required", nil)
	}

	user := &model.User{
		Phone: phone,
		Name:  name,
		Role:  model.RolePatient,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// registered concurrently
			existing, getErr := s.users.GetByPhone(ctx, phone)
			if getErr == nil {
				return existing, nil
			}
		}
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("patient registered", "user_id", user.ID.String())
	return user, nil
}

// RequestEmailOTP sends a login code for the doctor with this phone to the
// doctor's email, or to the leads mailbox when one is configured.
func (s *Service) RequestEmailOTP(ctx context.Context, phone string) (*model.RequestOTPResponse, error) {
	doctor, err := s.doctorByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if doctor.Email == nil || strings.TrimSpace(*doctor.Email) == "" {
		return nil, apperrors.BadRequest("Doctor email is not configured", nil)
	}

	to := *doctor.Email
	if s.cfg.LeadsToEmail != "" {
		to = s.cfg.LeadsToEmail
	}

	code, err := s.issue(ctx, channelEmail, phone)
	if err != nil {
		return nil, err
	}
	if err := s.email.SendOTP(ctx, to, code); err != nil {
		s.logger.Error(err, "failed to send otp email", "phone", phone)
		return nil, apperrors.InternalMessage("Failed to send OTP email", err)
	}

	return &model.RequestOTPResponse{
		Message:           "OTP sent to doctor email",
		AlreadyRegistered: true,
	}, nil
}

func (s *Service) VerifyEmailOTP(ctx context.Context, phone, code string) (*model.TokenResponse, error) {
	doctor, err := s.doctorByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	hashed, err := s.check(ctx, channelEmail, phone, code)
	if err != nil {
		return nil, err
	}
	if err := s.consume(ctx, channelEmail, phone, hashed); err != nil {
		return nil, err
	}
	return s.signIn(channelEmail, doctor)
}

func (s *Service) doctorByPhone(ctx context.Context, phone string) (*model.User, error) {
	if s.cfg.DoctorPhone != "" && phone != s.cfg.DoctorPhone {
		return nil, apperrors.Forbidden("Doctor only", nil)
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !user.IsDoctor() {
		return nil, apperrors.Forbidden("Doctor only", nil)
	}
	return user, nil
}

func (s *Service) UserExists(ctx context.Context, phone string) (bool, error) {
	exists, err := s.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return false, apperrors.Internal(err)
	}
	return exists, nil
}

// Authenticate turns a bearer token into the caller's principal.
func (s *Service) Authenticate(token string) (model.Principal, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return model.Principal{}, apperrors.Unauthorized("Invalid token", err)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return model.Principal{}, apperrors.Unauthorized("Invalid token", err)
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return model.Principal{}, apperrors.Unauthorized("Invalid token", err)
	}
	return model.Principal{UserID: id, Role: role}, nil
}

// issue stores a fresh hashed code and resets the attempt counter.
func (s *Service) issue(ctx context.Context, ch channel, phone string) (string, error) {
	code, err := security.GenerateNumericCode(security.OTPLength)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	hashed, err := s.hasher.Hash(code)
	if err != nil {
		return "", apperrors.Internal(err)
	}

	if err := s.store.Delete(ctx, attemptsKey(ch, phone)); err != nil {
		return "", apperrors.Internal(err)
	}
	if err := s.store.Set(ctx, codeKey(ch, phone), hashed, s.cfg.TTL); err != nil {
		return "", apperrors.Internal(err)
	}

	if s.metrics != nil {
		s.metrics.OTPIssued.WithLabelValues(string(ch)).Inc()
	}
	return code, nil
}

// check counts every attempt against the stored code and returns the stored
// hash when code matches it. Once the limit is exceeded the code is unusable
// until it expires or a new one is issued.
func (s *Service) check(ctx context.Context, ch channel, phone, code string) (string, error) {
	hashed, ok, err := s.store.Get(ctx, codeKey(ch, phone))
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if !ok {
		s.observe(ch, "missing")
		return "", apperrors.Unauthorized("Invalid or expired OTP", ErrInvalidCode)
	}

	n, err := s.store.Incr(ctx, attemptsKey(ch, phone), s.cfg.TTL)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if n > int64(s.cfg.MaxAttempts) {
		s.observe(ch, "locked")
		return "", apperrors.TooManyRequests("Too many attempts, request a new code", ErrTooManyAttempts)
	}

	if err := s.hasher.Compare(hashed, code); err != nil {
		s.observe(ch, "mismatch")
		if errors.Is(err, security.ErrCodeMismatch) {
			return "", apperrors.Unauthorized("Invalid or expired OTP", ErrInvalidCode)
		}
		return "", apperrors.Internal(err)
	}
	return hashed, nil
}

// consume removes the matched code. Only one caller can remove a given code,
// so a code signs in at most once even under concurrent verifies.
func (s *Service) consume(ctx context.Context, ch channel, phone, hashed string) error {
	taken, err := s.store.Take(ctx, codeKey(ch, phone), hashed)
	if err != nil {
		s.logger.Error(err, "failed to consume otp", "phone", phone)
		return apperrors.Internal(err)
	}
	if !taken {
		s.observe(ch, "replayed")
		return apperrors.Unauthorized("Invalid or expired OTP", ErrInvalidCode)
	}
	if err := s.store.Delete(ctx, attemptsKey(ch, phone)); err != nil {
		s.logger.Warn("failed to reset otp attempts", "phone", phone, "error", err.Error())
	}
	return nil
}

func (s *Service) signIn(ch channel, user *model.User) (*model.TokenResponse, error) {
	token, err := s.jwtSvc.GenerateToken(user.ID.String(), string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.observe(ch, "ok")

	return &model.TokenResponse{Token: token, Role: user.Role}, nil
}

func (s *Service) observe(ch channel, result string) {
	if s.metrics != nil {
		s.metrics.OTPVerifications.WithLabelValues(string(ch), result).Inc()
	}
}
