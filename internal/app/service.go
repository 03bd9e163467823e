package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shrimpsizemoose/kardemumma/internal/geo"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
	"github.com/shrimpsizemoose/kardemumma/internal/report"
	"github.com/shrimpsizemoose/kardemumma/internal/store"
)

type Service struct {
	Config  *Config
	Store   store.AttendanceStore
	Tokens  TokenStore
	Anchor  geo.Anchor
	Reports *report.Aggregator
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	tokens, err := NewTokenManager(config.Auth.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init token manager: %w", err)
	}

	return &Service{
		Config: config,
		Store:  store,
		Tokens: tokens,
		Anchor: geo.Anchor{
			Latitude:  config.Geofence.Latitude,
			Longitude: config.Geofence.Longitude,
			RadiusM:   config.Geofence.RadiusM,
		},
		Reports: report.NewAggregator(store),
	}, nil
}

type VerifyOutcome string

const (
	OutcomeMarked              VerifyOutcome = "marked"
	OutcomeAlreadyMarked       VerifyOutcome = "already_marked"
	OutcomeInvalidToken        VerifyOutcome = "invalid_token"
	OutcomeOutsideRange        VerifyOutcome = "outside_range"
	OutcomeLocationUnavailable VerifyOutcome = "location_unavailable"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AccuracyM float64 `json:"accuracy_m"`
}

type VerifyRequest struct {
	Student  string    `json:"student" validate:"required,max=64"`
	Day      string    `json:"day" validate:"required,datetime=2006-01-02"`
	Token    string    `json:"token" validate:"required"`
	DeviceID string    `json:"device_id" validate:"required,max=128"`
	Location *Location `json:"location"`
}

func (r *VerifyRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

type VerifyResult struct {
	Outcome   VerifyOutcome `json:"status"`
	DistanceM float64       `json:"distance_m,omitempty"`
	AccuracyM float64       `json:"accuracy_m,omitempty"`
}

// VerifyAttendance runs the whole gate: token, idempotency, geofence.
// Policy rejections come back as outcomes; only input and infrastructure
// problems surface as errors, and nothing is written unless the record
// insert itself succeeds.
func (s *Service) VerifyAttendance(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid verify request: %w", err)
	}

	if req.Location == nil {
		return &VerifyResult{Outcome: OutcomeLocationUnavailable}, nil
	}
	if req.Location.AccuracyM <= 0 {
		return nil, geo.ErrBadAccuracy
	}

	ok, err := s.Tokens.Validate(ctx, req.Day, req.Token)
	if err != nil {
		return nil, fmt.Errorf("token lookup failed: %w", err)
	}
	if !ok {
		return &VerifyResult{Outcome: OutcomeInvalidToken}, nil
	}

	exists, err := s.Store.RecordExists(req.Student, req.Day)
	if err != nil {
		return nil, fmt.Errorf("ledger lookup failed: %w", err)
	}
	if exists {
		return &VerifyResult{Outcome: OutcomeAlreadyMarked}, nil
	}

	check, err := s.Anchor.Contains(req.Location.Latitude, req.Location.Longitude, req.Location.AccuracyM)
	if err != nil {
		return nil, err
	}
	if !check.WithinRange {
		return &VerifyResult{
			Outcome:   OutcomeOutsideRange,
			DistanceM: check.DistanceM,
			AccuracyM: req.Location.AccuracyM,
		}, nil
	}

	record := &models.AttendanceRecord{
		Student:    req.Student,
		Day:        req.Day,
		DeviceID:   req.DeviceID,
		CapturedAt: time.Now().UTC().Unix(),
		Latitude:   req.Location.Latitude,
		Longitude:  req.Location.Longitude,
		AccuracyM:  req.Location.AccuracyM,
		DistanceM:  check.DistanceM,
		Source:     models.SourceAuto,
	}

	created, err := s.Store.TryCreateRecord(record)
	if err != nil {
		return nil, fmt.Errorf("failed to write attendance record: %w", err)
	}
	if !created {
		// lost the race to a concurrent call for the same key
		return &VerifyResult{Outcome: OutcomeAlreadyMarked}, nil
	}

	return &VerifyResult{Outcome: OutcomeMarked, DistanceM: check.DistanceM}, nil
}

// ValidateAdminHeaders gates the admin surface on the configured headers.
func (s *Service) ValidateAdminHeaders(headers map[string][]string) bool {
	if !s.Config.Server.EnableAdminGate {
		return true
	}
	for _, required := range s.Config.Admin.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Tokens.Close(); err != nil {
		errs = append(errs, fmt.Errorf("tokens: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
