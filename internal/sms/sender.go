// Package sms delivers one-time codes to phones.
package sms

import (
	"context"

	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type Sender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log instead of a carrier. It is the only
// transport the clinic uses today.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.Nop()
	}
	return &LogSender{logger: log}
}

func (s *LogSender) SendOTP(_ context.Context, phone, code string) error {
	s.logger.Debug("sms otp", "phone", phone, "code", code)
	return nil
}
