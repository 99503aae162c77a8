// Package handlertest holds helpers shared by the handler package tests.
package handlertest

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

// Tokens maps bearer tokens to principals.
type Tokens map[string]model.Principal

func (t Tokens) Authenticate(token string) (model.Principal, error) {
	p, ok := t[token]
	if !ok {
		return model.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

// Session is a fixed doctor and patient with tokens "doctor" and "patient".
type Session struct {
	Doctor  model.Principal
	Patient model.Principal
	Auth    *middleware.AuthMiddleware
}

func NewSession() *Session {
	s := &Session{
		Doctor:  model.Principal{UserID: uuid.New(), Role: model.RoleDoctor},
		Patient: model.Principal{UserID: uuid.New(), Role: model.RolePatient},
	}
	s.Auth = middleware.NewAuthMiddleware(Tokens{
		"doctor":  s.Doctor,
		"patient": s.Patient,
	})
	return s
}

// NewEngine returns a test-mode engine with binding validators installed.
func NewEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()
	return gin.New()
}

// Do sends body as JSON with an optional bearer token.
func Do(t *testing.T, r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Envelope is the decoded response body.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func Decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
