// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package idp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tessera-io/tessera/internal/config"
	"github.com/tessera-io/tessera/internal/domain"
	"github.com/tessera-io/tessera/internal/logging"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/models"
)

// BreakerClient wraps an Adapter with a circuit breaker so a degraded
// directory service cannot pile up in-flight admin requests.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations; tests should exercise the wrapped client directly.
type BreakerClient struct {
	client Adapter
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewBreakerClient wraps client with a circuit breaker tuned from cfg.
// Classified provider outcomes (NotFound, NameExists) count as successes;
// only infrastructure faults trip the breaker.
func NewBreakerClient(client Adapter, cfg *config.IdPConfig) *BreakerClient {
	cbName := "directory-api"

	maxRequests := cfg.BreakerMaxRequests
	if maxRequests == 0 {
		maxRequests = 3
	}
	interval := cfg.BreakerInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,

		// Opens at >= 60% failure rate once there is a meaningful sample.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || domain.IsNotFound(err) || domain.IsNameExists(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

func breakerStateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func breakerStateFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// execute runs one provider call through the breaker. A rejected call (open
// circuit, or half-open saturation) surfaces as an Adapter fault.
func execute[T any](bc *BreakerClient, operation string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := bc.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Str("operation", operation).Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return zero, domain.Adapter("idp."+operation, fmt.Errorf("directory unavailable: %w", err))
		}
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, domain.Adapter("idp."+operation, fmt.Errorf("unexpected result type %T", result))
	}
	return typed, nil
}

// page bundles a list result through the breaker's single return value.
type page[T any] struct {
	items  []T
	cursor string
}

func (bc *BreakerClient) CreateGroup(ctx context.Context, tenantID string, group *models.Group) (*models.Group, error) {
	return execute(bc, "create_group", func() (*models.Group, error) {
		return bc.client.CreateGroup(ctx, tenantID, group)
	})
}

func (bc *BreakerClient) GetGroup(ctx context.Context, tenantID, name string) (*models.Group, error) {
	return execute(bc, "get_group", func() (*models.Group, error) {
		return bc.client.GetGroup(ctx, tenantID, name)
	})
}

func (bc *BreakerClient) ListGroups(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.Group, string, error) {
	result, err := execute(bc, "list_groups", func() (page[models.Group], error) {
		items, cursor, err := bc.client.ListGroups(ctx, tenantID, opts)
		return page[models.Group]{items: items, cursor: cursor}, err
	})
	return result.items, result.cursor, err
}

func (bc *BreakerClient) UpdateGroup(ctx context.Context, tenantID, name string, update models.GroupUpdate) (*models.Group, error) {
	return execute(bc, "update_group", func() (*models.Group, error) {
		return bc.client.UpdateGroup(ctx, tenantID, name, update)
	})
}

func (bc *BreakerClient) ListUsersInGroup(ctx context.Context, tenantID, name string, opts models.ListOptions) ([]models.User, string, error) {
	result, err := execute(bc, "list_group_users", func() (page[models.User], error) {
		items, cursor, err := bc.client.ListUsersInGroup(ctx, tenantID, name, opts)
		return page[models.User]{items: items, cursor: cursor}, err
	})
	return result.items, result.cursor, err
}

func (bc *BreakerClient) AddUserToGroup(ctx context.Context, tenantID, name, username string) error {
	_, err := execute(bc, "add_group_user", func() (struct{}, error) {
		return struct{}{}, bc.client.AddUserToGroup(ctx, tenantID, name, username)
	})
	return err
}

func (bc *BreakerClient) RemoveUserFromGroup(ctx context.Context, tenantID, name, username string) error {
	_, err := execute(bc, "remove_group_user", func() (struct{}, error) {
		return struct{}{}, bc.client.RemoveUserFromGroup(ctx, tenantID, name, username)
	})
	return err
}

func (bc *BreakerClient) GetUser(ctx context.Context, tenantID, username string) (*models.User, error) {
	return execute(bc, "get_user", func() (*models.User, error) {
		return bc.client.GetUser(ctx, tenantID, username)
	})
}

func (bc *BreakerClient) ListUsers(ctx context.Context, tenantID string, opts models.ListOptions) ([]models.User, string, error) {
	result, err := execute(bc, "list_users", func() (page[models.User], error) {
		items, cursor, err := bc.client.ListUsers(ctx, tenantID, opts)
		return page[models.User]{items: items, cursor: cursor}, err
	})
	return result.items, result.cursor, err
}

func (bc *BreakerClient) ListGroupsForUser(ctx context.Context, tenantID, username string) ([]models.Group, error) {
	return execute(bc, "list_user_groups", func() ([]models.Group, error) {
		return bc.client.ListGroupsForUser(ctx, tenantID, username)
	})
}

func (bc *BreakerClient) SetUserEnabled(ctx context.Context, tenantID, username string, enabled bool) error {
	_, err := execute(bc, "set_user_enabled", func() (struct{}, error) {
		return struct{}{}, bc.client.SetUserEnabled(ctx, tenantID, username, enabled)
	})
	return err
}

func (bc *BreakerClient) DeleteUser(ctx context.Context, tenantID, username string) error {
	_, err := execute(bc, "delete_user", func() (struct{}, error) {
		return struct{}{}, bc.client.DeleteUser(ctx, tenantID, username)
	})
	return err
}

var _ Adapter = (*BreakerClient)(nil)
