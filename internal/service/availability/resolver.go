// Package availability computes the bookable slots of a doctor.
package availability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// SlotLength is the spacing between bookable instants.
const SlotLength = 30 * time.Minute

type DoctorDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type ScheduledFinder interface {
	FindScheduled(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]*model.Appointment, error)
}

type Resolver struct {
	users        DoctorDirectory
	appointments ScheduledFinder
	loc          *time.Location
	now          func() time.Time
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

type Option func(*Resolver)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(users DoctorDirectory, appointments ScheduledFinder, loc *time.Location, log *logger.Logger, opts ...Option) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &Resolver{
		users:        users,
		appointments: appointments,
		loc:          loc,
		now:          time.Now,
		logger:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveSlots returns the free instants, in UTC and ascending, of the next
// occurrence of day (today included) within the doctor's window for that day.
// No window, an unknown day name or a malformed window yield an empty result.
func (r *Resolver) ResolveSlots(ctx context.Context, doctorID uuid.UUID, day string) ([]time.Time, error) {
	doctor, err := r.users.GetByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !doctor.IsDoctor() {
		return nil, apperrors.NotFound("doctor", nil)
	}

	window, ok := doctor.Availability.ForDay(day)
	if !ok {
		r.observe("no_window")
		return []time.Time{}, nil
	}
	target, ok := model.ParseWeekday(string(window.Day))
	if !ok {
		r.observe("no_window")
		return []time.Time{}, nil
	}

	date := nextOccurrence(r.now().In(r.loc), target)
	start, err := atClock(date, window.From)
	if err == nil {
		var end time.Time
		end, err = atClock(date, window.To)
		if err == nil {
			return r.freeSlots(ctx, doctorID, start, end)
		}
	}

	r.logger.Warn("ignoring malformed availability window",
		"doctor_id", doctorID.String(),
		"day", day,
		"from", window.From,
		"to", window.To,
		"error", err.Error())
	r.observe("malformed_window")
	return []time.Time{}, nil
}

func (r *Resolver) freeSlots(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]time.Time, error) {
	slots := []time.Time{}
	if start.After(end) {
		r.observe("empty")
		return slots, nil
	}

	booked, err := r.appointments.FindScheduled(ctx, doctorID, start.UTC(), end.UTC())
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load appointments: %w", err))
	}
	taken := make(map[int64]struct{}, len(booked))
	for _, a := range booked {
		taken[a.Date.UnixNano()] = struct{}{}
	}

	for t := start; !t.After(end); t = t.Add(SlotLength) {
		if _, ok := taken[t.UnixNano()]; ok {
			continue
		}
		slots = append(slots, t.UTC())
	}

	if len(slots) == 0 {
		r.observe("empty")
	} else {
		r.observe("ok")
	}
	return slots, nil
}

func (r *Resolver) observe(outcome string) {
	if r.metrics != nil {
		r.metrics.SlotQueries.WithLabelValues(outcome).Inc()
	}
}

// nextOccurrence returns local midnight of the next target weekday on or
// after now.
func nextOccurrence(now time.Time, target time.Weekday) time.Time {
	daysToAdd := (int(target) - int(now.Weekday()) + 7) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d+daysToAdd, 0, 0, 0, 0, now.Location())
}

// atClock places an "H:M" clock on date. Stored windows predate the strict
// HH:MM check on writes, so unpadded parts such as "9:5" are accepted.
func atClock(date time.Time, clock string) (time.Time, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location()), nil
}

func parseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q", clock)
	}
	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in clock %q", clock)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in clock %q", clock)
	}
	return hour, minute, nil
}
