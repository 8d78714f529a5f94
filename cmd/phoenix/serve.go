package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/phoenix/internal/api"
	"github.com/efebarandurmaz/phoenix/internal/app"
	"github.com/efebarandurmaz/phoenix/internal/config"
	"github.com/efebarandurmaz/phoenix/internal/server"
	"github.com/efebarandurmaz/phoenix/internal/temporal"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), g.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logrus.WithField("component", "serve")

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	health := server.NewHealthServer(app.Version)
	sd := server.NewShutdownHandler(cfg.Server.ShutdownTimeout)
	a.RegisterHealth(health)
	a.RegisterShutdown(sd)

	deps := api.Deps{
		Catalog:   a.Catalog,
		Sessions:  a.Sessions,
		Transform: a.Transform,
		Analysis:  a.Analysis,
		Index:     a.Index,
		Lineage:   a.Lineage,
		Health:    health,
		Activity:  a.Activity,
	}
	if cfg.Temporal.Host != "" {
		c, err := client.Dial(client.Options{HostPort: cfg.Temporal.Host, Namespace: cfg.Temporal.Namespace})
		if err != nil {
			log.WithError(err).Warn("temporal unavailable, batch endpoints disabled")
		} else {
			deps.Batches = temporal.NewDispatcher(c, cfg.Temporal.TaskQueue)
			health.RegisterCheck("temporal", server.DependencyChecker("temporal", false, func(ctx context.Context) error {
				_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
				return err
			}))
			sd.RegisterHook("temporal-client", server.PriorityWorkers, func(context.Context) error {
				c.Close()
				return nil
			})
		}
	}

	srv := &http.Server{
		Handler: api.NewServer(deps, api.Options{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			CORSOrigins:    cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		a.Close(ctx)
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}
	return server.Serve(srv, ln, health, sd)
}
