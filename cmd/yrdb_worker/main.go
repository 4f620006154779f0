package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	yrdb "github.com/opst/yeastregulatorydb/pkg"
	"github.com/opst/yeastregulatorydb/pkg/configs"
	"github.com/opst/yeastregulatorydb/pkg/echoutil"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/utils/filewatch"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	loglevel := flag.String("loglevel", "", "log level. debug|info|warn|error. overrides the config file")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := filewatch.Supervise(
		ctx, []string{*configPath},
		func(ctx context.Context) error { return work(ctx, log, *configPath, *loglevel) },
		func(m *filewatch.ModifiedError) {
			log.WithField("path", m.Path).Info("config file is updated. restarting worker")
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("worker is stopped")
	}
}

func work(ctx context.Context, log *logrus.Logger, configPath, loglevel string) error {
	conf, err := configs.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if loglevel == "" {
		loglevel = conf.Server().LogLevel()
	}
	if lv, err := logrus.ParseLevel(loglevel); err == nil {
		log.SetLevel(lv)
	}

	stack, err := yrdb.Attach(ctx, conf, log)
	if err != nil {
		return err
	}
	defer stack.Close()
	ctx, cancel := stack.SchemaContext(ctx)
	defer cancel()
	if !stack.Shared() {
		return xe.Invalid("database.driver", "worker needs a shared database. the api server runs tasks by itself on %q", conf.Database().Driver())
	}

	metrics := echo.New()
	metrics.HideBanner = true
	metrics.HidePort = true
	echoutil.SetLevel(metrics, loglevel)
	metrics.GET("/metrics", echo.WrapHandler(stack.Metrics().Handler()))
	go func() {
		addr := fmt.Sprintf(":%d", conf.Worker().MetricsPort())
		if err := metrics.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server is stopped")
		}
	}()
	defer func() {
		graceful, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metrics.Shutdown(graceful)
	}()

	log.WithFields(logrus.Fields{
		"concurrency": conf.Worker().Concurrency(),
		"lease":       conf.Worker().Lease(),
	}).Info("worker is started")
	if err := stack.Worker().Start(ctx); err != nil {
		return err
	}
	return context.Cause(ctx)
}
