package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/phoenix/internal/app"
	"github.com/efebarandurmaz/phoenix/internal/config"
	"github.com/efebarandurmaz/phoenix/internal/logging"
	"github.com/efebarandurmaz/phoenix/internal/secrets"
	"github.com/efebarandurmaz/phoenix/internal/temporal"
)

func main() {
	_ = godotenv.Load()

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := secrets.Apply(context.Background(), cfg); err != nil {
		logrus.Fatalf("secrets: %v", err)
	}
	closer, err := logging.Init(cfg.Log)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}
	defer closer.Close()
	log := logrus.WithField("component", "worker")

	ctx := context.Background()
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("building services: %v", err)
	}
	defer a.Close(ctx)

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporal.StartWorker(c, cfg.Temporal.TaskQueue, &temporal.Activities{
		Transform: a.Transform,
		Analysis:  a.Analysis,
	})
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	log.WithField("task_queue", cfg.Temporal.TaskQueue).Info("worker started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	log.Info("worker stopped")
}
