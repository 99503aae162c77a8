package email

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func TestBuildOTPMessage(t *testing.T) {
	msg, err := buildOTPMessage("clinic@example.com", " doctor@example.com ", "123456")
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "To: doctor@example.com")
	assert.Contains(t, buf.String(), "123456")

	_, err = buildOTPMessage("", "doctor@example.com", "123456")
	assert.Error(t, err)
	_, err = buildOTPMessage("clinic@example.com", "", "123456")
	assert.Error(t, err)
}

func TestNewService_DisabledLogsCode(t *testing.T) {
	var out bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Output: &out})

	svc := NewService(config.SMTPConfig{Enabled: false}, log)
	require.NoError(t, svc.SendOTP(context.Background(), "doctor@example.com", "654321"))
	assert.Contains(t, out.String(), "654321")
}

func TestSMTPService_RespectsCancelledContext(t *testing.T) {
	svc := NewService(config.SMTPConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    1,
		From:    "clinic@example.com",
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, svc.SendOTP(ctx, "doctor@example.com", "111111"))
}
