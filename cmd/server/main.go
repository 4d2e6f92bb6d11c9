// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Command server runs the Tessera admin API. It wires the embedded store,
// the identity-provider adapter, and the admin services under a suture
// supervisor tree so a crash in one layer restarts only that layer.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tessera-io/tessera/internal/api"
	"github.com/tessera-io/tessera/internal/audit"
	"github.com/tessera-io/tessera/internal/config"
	"github.com/tessera-io/tessera/internal/idp"
	"github.com/tessera-io/tessera/internal/logging"
	"github.com/tessera-io/tessera/internal/policyengine"
	"github.com/tessera-io/tessera/internal/service"
	"github.com/tessera-io/tessera/internal/store"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))).
		Msg("starting tessera")

	db, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("store close failed")
		}
	}()

	directory := idp.NewBreakerClient(idp.NewClient(&cfg.IdP), &cfg.IdP)

	auditLog := audit.NewLogger()
	authz := service.NewAuthorizer(cfg.Security.AdminRoles, auditLog)

	roles := service.NewRoleService(db.Roles(), db.Permissions(), db.Assignments(), authz, auditLog)
	permissions := service.NewPermissionService(db.Permissions(), db.Assignments(), authz, auditLog)
	groups := service.NewGroupService(directory, db.Roles(), db.Assignments(), authz, auditLog)
	users := service.NewUserService(directory, db.Roles(), db.Permissions(), db.Assignments(), authz, auditLog)
	policies := service.NewPolicyService(db.Policies(), policyengine.NewValidator(), authz, auditLog)

	handler := api.NewHandler(roles, permissions, groups, users, policies)
	router := api.NewRouter(&cfg.Security, handler)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	hook := (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook()
	root := suture.New("tessera", suture.Spec{
		EventHook: hook,
		Timeout:   cfg.Server.ShutdownTimeout,
	})
	root.Add(&httpService{srv: srv, shutdownTimeout: cfg.Server.ShutdownTimeout})
	root.Add(&storeGCService{store: db})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = root.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}

// httpService runs the HTTP server as a supervised service.
type httpService struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// Serve blocks until the listener fails or the context is canceled. On
// cancellation it drains in-flight requests within the shutdown timeout.
func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("graceful shutdown failed")
		}
		return ctx.Err()
	}
}

func (s *httpService) String() string { return "http-server" }

// storeGCService runs the badger value-log garbage collector on its
// configured interval.
type storeGCService struct {
	store *store.Store
}

func (s *storeGCService) Serve(ctx context.Context) error {
	s.store.RunGC(ctx)
	return ctx.Err()
}

func (s *storeGCService) String() string { return "store-gc" }
