package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/event"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/phone"
)

const (
	ModeSandbox    = "sandbox"
	ModeProduction = "production"
)

type AppointmentLookup interface {
	GetDetails(ctx context.Context, id uuid.UUID) (*model.AppointmentDetails, error)
}

type Service struct {
	appointments AppointmentLookup
	sender       WhatsAppSender
	cfg          config.WhatsAppConfig
	loc          *time.Location
	events       event.Emitter
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

// NewService wires the reminder flow. sender may be nil when provider
// credentials are absent; sending then fails with a configuration error.
func NewService(
	appointments AppointmentLookup,
	sender WhatsAppSender,
	cfg config.WhatsAppConfig,
	loc *time.Location,
	events event.Emitter,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if events == nil {
		events = event.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = ModeSandbox
	}
	return &Service{
		appointments: appointments,
		sender:       sender,
		cfg:          cfg,
		loc:          loc,
		events:       events,
		logger:       log,
		metrics:      m,
	}
}

// SendAppointmentReminder messages the patient of an appointment on
// WhatsApp. In sandbox mode the message goes to the configured test number.
func (s *Service) SendAppointmentReminder(ctx context.Context, appointmentID uuid.UUID) (*model.ReminderResult, error) {
	apt, err := s.appointments.GetDetails(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	if apt.Date.IsZero() {
		return nil, apperrors.BadRequest("Appointment date is missing", nil)
	}
	if strings.TrimSpace(apt.Patient.Phone) == "" {
		return nil, apperrors.BadRequest("Patient phone is missing", nil)
	}
	patientE164, ok := phone.ToE164(apt.Patient.Phone)
	if !ok {
		return nil, apperrors.BadRequest("Invalid patient phone format", nil)
	}

	from := strings.TrimSpace(s.cfg.From)
	if from == "" {
		return nil, apperrors.InternalMessage("Missing TWILIO_WHATSAPP_FROM", nil)
	}

	msg := Message{From: from}
	var sentTo string
	if s.cfg.Mode == ModeSandbox {
		to, ok := phone.WhatsAppAddress(s.cfg.SandboxTo)
		if !ok {
			return nil, apperrors.InternalMessage("Missing/invalid SANDBOX_TEST_TO. Use +9725xxxxxxx (no 0 after +972).", nil)
		}
		msg.To = to
		msg.Body = sandboxBody(apt.Patient.Name, apt.Date.In(s.loc))
		sentTo = strings.TrimPrefix(to, "whatsapp:")
	} else {
		templateSID := strings.TrimSpace(s.cfg.TemplateSID)
		if templateSID == "" {
			return nil, apperrors.InternalMessage("Missing TWILIO_TEMPLATE_SID", nil)
		}
		local := apt.Date.In(s.loc)
		msg.To = "whatsapp:" + patientE164
		msg.ContentSID = templateSID
		msg.ContentVariables = map[string]string{
			"1": local.Format("02/01/2006"),
			"2": local.Format("15:04"),
		}
		sentTo = patientE164
	}

	if s.sender == nil {
		return nil, apperrors.InternalMessage("Missing TWILIO_SID or TWILIO_AUTH_TOKEN", nil)
	}

	s.logger.Info("sending whatsapp reminder",
		"appointment_id", appointmentID.String(),
		"mode", s.cfg.Mode,
		"to", msg.To)

	sid, err := s.sender.Send(ctx, msg)
	if err != nil {
		s.observe("error")
		s.logger.Error(err, "whatsapp reminder failed", "appointment_id", appointmentID.String())
		return nil, apperrors.InternalMessage(fmt.Sprintf("Failed to send WhatsApp reminder: %v", err), err)
	}
	s.observe("ok")

	result := &model.ReminderResult{OK: true, SID: sid, Mode: s.cfg.Mode, SentTo: sentTo}
	if err := s.events.Emit(ctx, model.EventReminderSent, map[string]interface{}{
		"appointmentId": appointmentID,
		"sid":           sid,
		"mode":          s.cfg.Mode,
	}); err != nil {
		s.logger.Error(err, "failed to record event", "appointment_id", appointmentID.String())
	}
	return result, nil
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.RemindersSent.WithLabelValues(s.cfg.Mode, result).Inc()
	}
}

var hebrewWeekdays = [...]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}

func sandboxBody(patientName string, at time.Time) string {
	name := strings.TrimSpace(patientName)
	if name == "" {
		name = "ללא שם"
	}
	when := fmt.Sprintf("יום %s, %s", hebrewWeekdays[at.Weekday()], at.Format("02.01.2006, 15:04"))
	return fmt.Sprintf("✅ תזכורת לתור (בדיקה - Sandbox)\nמטופל: %s\nמועד: %s", name, when)
}
