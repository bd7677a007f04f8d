// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/roadrats/wmsops/pkg/logging"
	"github.com/roadrats/wmsops/services/dbconn"
	"github.com/roadrats/wmsops/services/dberrors"
	"github.com/roadrats/wmsops/services/jira"
	"github.com/roadrats/wmsops/services/llm"
	"github.com/roadrats/wmsops/services/opsserver/routes"
	"github.com/roadrats/wmsops/services/orders"
	"github.com/roadrats/wmsops/services/releases"
	"github.com/roadrats/wmsops/services/srm"
	"github.com/roadrats/wmsops/services/testtools"
)

// serverConfig aggregates every subsystem's environment block under one
// parse. The database block carries its own WMSOPS_DB_* prefixes.
type serverConfig struct {
	Port   string `env:"WMSOPS_PORT" envDefault:"8080" validate:"required,numeric"`
	Debug  bool   `env:"WMSOPS_DEBUG"`
	LogDir string `env:"WMSOPS_LOG_DIR"`

	Database  dbconn.Config
	Errors    dberrors.Config  `envPrefix:"WMSOPS_DBERR_"`
	Jira      jira.Config      `envPrefix:"WMSOPS_JIRA_"`
	Releases  releases.Config  `envPrefix:"WMSOPS_RELEASES_"`
	OpenAI    llm.Config       `envPrefix:"WMSOPS_OPENAI_"`
	TestTools testtools.Config `envPrefix:"WMSOPS_TESTTOOLS_"`
	Srm       srm.Config       `envPrefix:"WMSOPS_SRM_"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the operations HTTP backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func initTracer() (func(context.Context), error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String("wmsops")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown trace exporter", "error", err)
		}
	}, nil
}

func runServe() error {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.LogDir,
		Service: "wmsops",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())
	if cfg.Database.CLS.URL == "" && cfg.Database.IO.URL == "" {
		cfg.Database = dbconn.DefaultConfig()
	}
	if len(cfg.Errors.Servers) == 0 {
		cfg.Errors = dberrors.DefaultConfig()
	}

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to set up the tracer: %v", err)
	}
	defer cleanup(context.Background())

	factory := dbconn.NewFactory(cfg.Database)
	defer factory.Close()

	clsPool, err := factory.Pool(dbconn.PoolCLS)
	if err != nil {
		return err
	}
	ioPool, err := factory.Pool(dbconn.PoolIO)
	if err != nil {
		return err
	}

	jiraClient := jira.NewClient(cfg.Jira)

	deps := routes.Deps{
		DBConfig: cfg.Database,
		Factory:  factory,

		Orders:   orders.NewRepository(ioPool),
		Saturday: orders.NewSaturdayService(ioPool, clsPool),
		DBErrors: dberrors.NewService(cfg.Errors,
			dberrors.NewRepository(factory, cfg.Errors.Database)),

		Jira:        jiraClient,
		JiraConfig:  cfg.Jira,
		Planner:     releases.NewPlanner(cfg.Releases, jiraClient),
		Releases:    cfg.Releases,
		Folders:     releases.NewFolderService(cfg.Releases),
		Actions:     releases.NewActionsService(cfg.Releases),
		Assistant:   llm.NewAssistant(cfg.OpenAI),
		Lookup:      testtools.NewLookupService(cfg.TestTools, factory),
		Ship:        testtools.NewShipService(cfg.TestTools, factory),
		TestActions: testtools.NewActionService(cfg.TestTools, factory),
		Items:       testtools.NewItemService(cfg.TestTools, factory),
		SrmAPI:      srm.NewAPIClient(cfg.Srm, factory),
		SrmFiles:    srm.NewFileService(cfg.Srm),
		SrmValidate: srm.NewValidationService(cfg.Srm, factory),
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(otelgin.Middleware("wmsops"))
	routes.SetupRoutes(router, deps)

	slog.Info("Starting wmsops backend", "port", cfg.Port)
	return router.Run(":" + cfg.Port)
}
