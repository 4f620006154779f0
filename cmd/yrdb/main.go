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

	yrdb "github.com/opst/yeastregulatorydb/pkg"
	"github.com/opst/yeastregulatorydb/pkg/api"
	"github.com/opst/yeastregulatorydb/pkg/api/handlers"
	"github.com/opst/yeastregulatorydb/pkg/configs"
	"github.com/opst/yeastregulatorydb/pkg/utils/filewatch"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	loglevel := flag.String("loglevel", "", "log level. debug|info|warn|error|off. overrides the config file")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := filewatch.Supervise(
		ctx, []string{*configPath},
		func(ctx context.Context) error { return serve(ctx, log, *configPath, *loglevel, *pcert, *pkey) },
		func(m *filewatch.ModifiedError) {
			log.WithField("path", m.Path).Info("config file is updated. restarting server")
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server is stopped")
	}
}

func serve(ctx context.Context, log *logrus.Logger, configPath, loglevel, cert, key string) error {
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

	orch := stack.Orchestrator()
	e := api.New(api.Deps{
		DB:       stack.Database(),
		Gate:     stack.Gate(),
		Chains:   handlers.Chainer{Queued: orch, Inline: orch.Inline()},
		Exporter: stack.Stages(),
		Queue:    orch.Queue(),
		HMACKey:  conf.Auth().HMACKey(),
		Admins:   conf.Auth().Admins(),
		Metrics:  stack.Metrics(),
		LogLevel: loglevel,
	})
	for _, r := range e.Routes() {
		log.WithFields(logrus.Fields{"method": r.Method, "path": r.Path}).Debug("route is registered")
	}

	if !stack.Shared() {
		// tasks in the memory database are invisible to other processes.
		log.Warn("database is not shared. tasks run in this process")
		go func() {
			if err := stack.Worker().Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("worker is stopped")
			}
		}()
	}

	addr := fmt.Sprintf(":%d", conf.Server().Port())
	served := make(chan error, 1)
	go func() {
		if cert != "" && key != "" {
			served <- e.StartTLS(addr, cert, key)
		} else {
			served <- e.Start(addr)
		}
	}()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			log.WithError(err).Warn("error on shutdown")
		}
		return context.Cause(ctx)
	}
}
