// Package yrdb assembles the database, the file store and the pipeline from a configuration.
package yrdb

import (
	"context"
	"fmt"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/blob"
	"github.com/opst/yeastregulatorydb/pkg/configs"
	"github.com/opst/yeastregulatorydb/pkg/db"
	dbmem "github.com/opst/yeastregulatorydb/pkg/db/memory"
	kpg "github.com/opst/yeastregulatorydb/pkg/db/postgres"
	kpgschema "github.com/opst/yeastregulatorydb/pkg/db/postgres/schema"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/lock"
	lockpg "github.com/opst/yeastregulatorydb/pkg/lock/postgres"
	"github.com/opst/yeastregulatorydb/pkg/metrics"
	"github.com/opst/yeastregulatorydb/pkg/stages"
	"github.com/opst/yeastregulatorydb/pkg/tasks"
	taskpg "github.com/opst/yeastregulatorydb/pkg/tasks/postgres"
	"github.com/sirupsen/logrus"
)

type Middlewares interface {
	Database() db.Database
	Blobs() blob.Store
	Config() *configs.Config
	Metrics() *metrics.Metrics
}

type Stack interface {
	Middlewares

	Gate() *ingest.Gate
	Stages() *stages.Stages
	Orchestrator() *tasks.Orchestrator

	// Worker runs tasks of the orchestrator and sweeps orphaned files between them.
	Worker() *tasks.Worker

	// Shared reports whether tasks are visible to other processes.
	//
	// It is false with the memory database, where the api server should run its own worker.
	Shared() bool

	// SchemaContext returns a context which is canceled when the database schema gets outdated.
	//
	// Without a schema repository, it is ctx as is.
	SchemaContext(ctx context.Context) (context.Context, context.CancelFunc)

	Close() error
}

type stack struct { // implements Stack
	config  *configs.Config
	db      db.Database
	blobs   blob.Store
	metrics *metrics.Metrics
	shared  bool
	schema  *kpgschema.Schema

	gate   *ingest.Gate
	stages *stages.Stages
	orch   *tasks.Orchestrator
}

var _ Stack = &stack{}

// Attach connects to the database and the file store of conf, and builds the pipeline on them.
func Attach(ctx context.Context, conf *configs.Config, log logrus.FieldLogger) (Stack, error) {
	s := &stack{config: conf, metrics: metrics.New()}

	var queue tasks.Queue
	var locker lock.Locker
	switch driver := conf.Database().Driver(); driver {
	case "postgres":
		opts := []kpg.Option{}
		if repo := conf.Database().SchemaRepository(); repo != "" {
			opts = append(opts, kpg.WithSchemaRepository(repo))
		}
		pg, err := kpg.New(ctx, conf.Database().URI(), opts...)
		if err != nil {
			return nil, xe.WrapWithNote("can not connect to the database", err)
		}
		s.db = pg
		s.shared = true
		s.schema = pg.Schema()
		queue = taskpg.New(pg.Pool())
		locker = lockpg.New(pg.Pool())
	case "memory":
		s.db = dbmem.New()
		queue = tasks.NewMemory(time.Now)
		locker = lock.NewMemory(time.Now)
	default:
		return nil, xe.Invalid("database.driver", "unknown driver: %q", driver)
	}

	blobs, err := blob.Open(ctx, conf.Storage().Blob())
	if err != nil {
		s.db.Close()
		return nil, xe.WrapWithNote(fmt.Sprintf("can not open the %s storage", conf.Storage().Blob().Driver), err)
	}
	s.blobs = blobs

	p := conf.Pipeline()
	s.gate = ingest.New(s.db, s.blobs, ingest.Config{
		ChrFormat:       p.ChrFormat(),
		NullFileSources: p.NullFileDataSources(),
		Log:             log.WithField("component", "ingest"),
		Metrics:         s.metrics,
	})
	s.stages = stages.New(s.db, s.blobs, stages.Config{
		ChrFormat:        p.ChrFormat(),
		PromoterSig:      p.PromoterSig(),
		BinSize:          p.BinSize(),
		SignificanceBins: p.SignificanceBins(),
		Log:              log.WithField("component", "stages"),
	})
	s.orch = tasks.New(s.db, queue, locker, s.stages, tasks.Config{
		LockKey: p.LockKey(),
		LockTTL: p.LockTTL(),
		Retry:   p.Retry(),
		Lease:   conf.Worker().Lease(),
		Log:     log.WithField("component", "tasks"),
		Metrics: s.metrics,
	})
	return s, nil
}

func (s *stack) Config() *configs.Config           { return s.config }
func (s *stack) Database() db.Database             { return s.db }
func (s *stack) Blobs() blob.Store                 { return s.blobs }
func (s *stack) Metrics() *metrics.Metrics         { return s.metrics }
func (s *stack) Gate() *ingest.Gate                { return s.gate }
func (s *stack) Stages() *stages.Stages            { return s.stages }
func (s *stack) Orchestrator() *tasks.Orchestrator { return s.orch }
func (s *stack) Shared() bool                      { return s.shared }

func (s *stack) Worker() *tasks.Worker {
	w := s.config.Worker()
	return tasks.NewWorker(s.orch, tasks.WorkerConfig{
		Concurrency:  w.Concurrency(),
		PollInterval: w.PollInterval(),
		Sweep: func(ctx context.Context) (bool, error) {
			return ingest.Sweep(ctx, s.db, s.blobs)
		},
	})
}

func (s *stack) SchemaContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.schema == nil {
		return context.WithCancel(ctx)
	}
	return s.schema.Context(ctx)
}

func (s *stack) Close() error {
	return s.db.Close()
}
