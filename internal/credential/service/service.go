// Package service binds contract entry points to host invocations. Each
// method is exactly one invocation.
package service

import (
	"context"
	"log/slog"

	"credrec/internal/credential/contract"
	"credrec/internal/credential/metrics"
	"credrec/internal/credential/models"
	"credrec/internal/host"
	"credrec/pkg/domain"
)

// Invoker runs one operation atomically against an instance.
type Invoker interface {
	Invoke(ctx context.Context, instance domain.InstanceID, caller domain.Caller, name string, op host.Operation) error
}

// Service exposes the credential record operations of any instance.
type Service struct {
	invoker  Invoker
	contract *contract.Contract
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(invoker Invoker, c *contract.Contract, opts ...Option) *Service {
	s := &Service{invoker: invoker, contract: c}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.contract == nil {
		s.contract = contract.New()
	}
	return s
}

// Initialize sets the fingerprint and status of instance.
func (s *Service) Initialize(ctx context.Context, instance domain.InstanceID, caller domain.Caller, hash string, status models.Status) error {
	err := s.invoker.Invoke(ctx, instance, caller, contract.OpInitialize, func(ctx context.Context, env host.Env) error {
		return s.contract.Initialize(ctx, env, hash, status)
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementInitialized(status)
	}
	s.logger.InfoContext(ctx, "credential record initialized",
		"instance_id", instance.String(),
		"status", status.String(),
	)
	return nil
}

// GetHash returns the fingerprint of instance.
func (s *Service) GetHash(ctx context.Context, instance domain.InstanceID, caller domain.Caller) (string, error) {
	var hash string
	err := s.invoker.Invoke(ctx, instance, caller, contract.OpGetHash, func(ctx context.Context, env host.Env) error {
		var err error
		hash, err = s.contract.GetHash(ctx, env)
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// GetStatus returns the status of instance.
func (s *Service) GetStatus(ctx context.Context, instance domain.InstanceID, caller domain.Caller) (models.Status, error) {
	var status models.Status
	err := s.invoker.Invoke(ctx, instance, caller, contract.OpGetStatus, func(ctx context.Context, env host.Env) error {
		var err error
		status, err = s.contract.GetStatus(ctx, env)
		return err
	})
	if err != nil {
		return 0, err
	}
	return status, nil
}

// GetCredentialInfo returns both fields of instance from one snapshot.
func (s *Service) GetCredentialInfo(ctx context.Context, instance domain.InstanceID, caller domain.Caller) (models.CredentialInfo, error) {
	var info models.CredentialInfo
	err := s.invoker.Invoke(ctx, instance, caller, contract.OpGetCredentialInfo, func(ctx context.Context, env host.Env) error {
		var err error
		info, err = s.contract.GetCredentialInfo(ctx, env)
		return err
	})
	if err != nil {
		return models.CredentialInfo{}, err
	}
	return info, nil
}

// UpdateStatus replaces the status of instance.
func (s *Service) UpdateStatus(ctx context.Context, instance domain.InstanceID, caller domain.Caller, status models.Status) error {
	err := s.invoker.Invoke(ctx, instance, caller, contract.OpUpdateStatus, func(ctx context.Context, env host.Env) error {
		return s.contract.UpdateStatus(ctx, env, status)
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementStatusUpdate(status)
	}
	s.logger.InfoContext(ctx, "credential status updated",
		"instance_id", instance.String(),
		"status", status.String(),
	)
	return nil
}
