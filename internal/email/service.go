package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// Service delivers login codes by email.
type Service interface {
	SendOTP(ctx context.Context, to, code string) error
}

// NewService returns an SMTP sender, or a log-only sender when SMTP is off.
func NewService(cfg config.SMTPConfig, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.Enabled {
		return &logService{logger: log}
	}
	return &smtpService{cfg: cfg, logger: log}
}

type smtpService struct {
	cfg    config.SMTPConfig
	logger *logger.Logger
}

func (s *smtpService) SendOTP(ctx context.Context, to, code string) error {
	msg, err := buildOTPMessage(s.cfg.From, to, code)
	if err != nil {
		return err
	}

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.SSL = s.cfg.UseTLS
	if s.cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: s.cfg.Host}
	}

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(msg)
	}()

	wait := s.cfg.Timeout
	if wait <= 0 {
		wait = 10 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		s.logger.Info("otp email sent", "to", to)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

func buildOTPMessage(from, to, code string) (*gomail.Message, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, fmt.Errorf("email sender is not configured")
	}
	if to == "" {
		return nil, fmt.Errorf("email recipient is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your login code")
	msg.SetBody("text/plain", fmt.Sprintf("Your login code is %s. It expires in a few minutes.", code))
	msg.AddAlternative("text/html", fmt.Sprintf("<p>Your login code is <b>%s</b>.</p><p>It expires in a few minutes.</p>", code))
	return msg, nil
}

type logService struct {
	logger *logger.Logger
}

func (s *logService) SendOTP(_ context.Context, to, code string) error {
	s.logger.Debug("smtp disabled, otp email not sent", "to", to, "code", code)
	return nil
}
