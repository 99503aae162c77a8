package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

// Message is one outgoing WhatsApp message. Either Body or ContentSID is set.
type Message struct {
	From             string
	To               string
	Body             string
	ContentSID       string
	ContentVariables map[string]string
}

type WhatsAppSender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type TwilioSender struct {
	client *twilio.RestClient
	cb     *circuitbreaker.CircuitBreaker
}

func NewTwilioSender(accountSID, authToken string, log *logger.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "twilio",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}, log)
	return &TwilioSender{client: client, cb: cb}
}

func (s *TwilioSender) Send(ctx context.Context, msg Message) (string, error) {
	params, err := buildParams(msg)
	if err != nil {
		return "", err
	}

	var sid string
	err = s.cb.Execute(ctx, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := s.client.Api.CreateMessage(params)
		if err != nil {
			return err
		}
		if resp.Sid != nil {
			sid = *resp.Sid
		}
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "", fmt.Errorf("whatsapp provider unavailable: %w", err)
	}
	return sid, err
}

func buildParams(msg Message) (*openapi.CreateMessageParams, error) {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(msg.From)
	params.SetTo(msg.To)

	if msg.ContentSID != "" {
		vars, err := json.Marshal(msg.ContentVariables)
		if err != nil {
			return nil, fmt.Errorf("failed to encode content variables: %w", err)
		}
		params.SetContentSid(msg.ContentSID)
		params.SetContentVariables(string(vars))
		return params, nil
	}

	params.SetBody(msg.Body)
	return params, nil
}
