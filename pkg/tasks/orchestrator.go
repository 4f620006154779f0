package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/db"
	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/ingest"
	"github.com/opst/yeastregulatorydb/pkg/lock"
	"github.com/opst/yeastregulatorydb/pkg/metrics"
	"github.com/opst/yeastregulatorydb/pkg/stages"
	"github.com/opst/yeastregulatorydb/pkg/utils/retry"
	"github.com/sirupsen/logrus"
)

// Stages computes derived records. *stages.Stages implements it.
type Stages interface {
	OutputFormatOf(source string) (string, bool)
	PromoterSignificance(ctx context.Context, req stages.PromoterSigRequest) ([]int64, error)
	RankResponse(ctx context.Context, req stages.RankResponseRequest) ([]int64, error)
	CombineReplicates(ctx context.Context, req stages.CombineRequest) (domain.Binding, error)
}

type Config struct {
	// LockKey names the lock held while a chain is submitted. "add_data_lock" if empty.
	LockKey string

	// LockTTL is one hour if zero.
	LockTTL time.Duration

	Retry retry.Policy

	// Lease is how long a claimed task is owned by its runner. 30 minutes if zero.
	Lease time.Duration

	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Orchestrator submits chains of stages and runs their tasks.
type Orchestrator struct {
	db     db.Database
	queue  Queue
	locker lock.Locker
	stages Stages
	conf   Config
	log    logrus.FieldLogger

	// inline runs tasks as soon as they are submitted.
	inline bool
}

func New(database db.Database, queue Queue, locker lock.Locker, st Stages, conf Config) *Orchestrator {
	if conf.LockKey == "" {
		conf.LockKey = "add_data_lock"
	}
	if conf.LockTTL <= 0 {
		conf.LockTTL = time.Hour
	}
	if conf.Lease <= 0 {
		conf.Lease = 30 * time.Minute
	}
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	if conf.Now == nil {
		conf.Now = time.Now
	}
	return &Orchestrator{
		db: database, queue: queue, locker: locker, stages: st, conf: conf, log: conf.Log,
	}
}

// Inline returns an Orchestrator which runs each task in the caller, as soon as it is submitted.
//
// A task failed transiently is left pending for workers to retry.
func (o *Orchestrator) Inline() *Orchestrator {
	cp := *o
	cp.inline = true
	return &cp
}

func (o *Orchestrator) Queue() Queue {
	return o.queue
}

// chain runs submit while holding the lock.
//
// When the lock is held by another, submit is not run and chain returns no tasks.
func (o *Orchestrator) chain(ctx context.Context, log logrus.FieldLogger, submit func(context.Context) ([]Task, error)) ([]Task, error) {
	var submitted []Task
	ran, err := lock.Do(ctx, o.locker, o.conf.LockKey, o.conf.LockTTL, func(ctx context.Context) error {
		ts, err := submit(ctx)
		submitted = ts
		return err
	})
	if err != nil {
		return submitted, err
	}
	if !ran {
		log.WithField("lock", o.conf.LockKey).Info("lock is held by another. chain is not submitted")
		return nil, nil
	}
	return submitted, nil
}

// BindingCreated submits the chain of a new Binding.
//
// A Binding with a file gets its promoter significance, followed by rank responses.
// A Binding of a file-less source comes with its PromoterSetSig, which gets rank responses.
func (o *Orchestrator) BindingCreated(ctx context.Context, user string, created ingest.BindingCreated) ([]Task, error) {
	b := created.Binding
	log := o.log.WithField("binding_id", b.ID)

	if created.PromoterSetSig != nil {
		return o.PromoterSetSigCreated(ctx, user, *created.PromoterSetSig)
	}
	if b.FileKey == "" {
		return nil, nil
	}
	src, err := o.db.References().GetDataSource(ctx, b.SourceID)
	if err != nil {
		return nil, err
	}
	if _, ok := o.stages.OutputFormatOf(src.Name); !ok {
		log.WithField("source", src.Name).Info("source has no promoter significance. chain is not submitted")
		return nil, nil
	}

	return o.chain(ctx, log, func(ctx context.Context) ([]Task, error) {
		t, err := o.submit(ctx, KindPromoterSignificance, PromoterSignificancePayload{BindingID: b.ID, User: user})
		if err != nil {
			return nil, err
		}
		return []Task{t}, nil
	})
}

// PromoterSetSigCreated submits rank responses of a PromoterSetSig against every Expression.
func (o *Orchestrator) PromoterSetSigCreated(ctx context.Context, user string, sig domain.PromoterSetSig) ([]Task, error) {
	log := o.log.WithFields(logrus.Fields{"binding_id": sig.BindingID, "promotersetsig_id": sig.ID})
	return o.chain(ctx, log, func(ctx context.Context) ([]Task, error) {
		t, err := o.submit(ctx, KindRankResponse, RankResponsePayload{PromoterSetSigID: sig.ID, User: user})
		if err != nil {
			return nil, err
		}
		return []Task{t}, nil
	})
}

// ExpressionCreated submits rank responses of every PromoterSetSig against a new Expression.
func (o *Orchestrator) ExpressionCreated(ctx context.Context, user string, e domain.Expression) ([]Task, error) {
	log := o.log.WithFields(logrus.Fields{"expression_id": e.ID, "regulator_id": e.RegulatorID})
	return o.chain(ctx, log, func(ctx context.Context) ([]Task, error) {
		sigs, err := o.db.PromoterSetSigs().Find(ctx, db.PromoterSetSigQuery{})
		if err != nil {
			return nil, err
		}
		submitted := make([]Task, 0, len(sigs))
		for _, sig := range sigs {
			t, err := o.submit(ctx, KindRankResponse, RankResponsePayload{
				PromoterSetSigID: sig.ID, ExpressionID: e.ID, User: user,
			})
			if err != nil {
				return submitted, err
			}
			submitted = append(submitted, t)
		}
		return submitted, nil
	})
}

// BindingQCChanged submits the combination of replicates when a calling cards Binding becomes usable.
func (o *Orchestrator) BindingQCChanged(ctx context.Context, user string, before, after domain.BindingManualQC) ([]Task, error) {
	if after.DataUsable != domain.Pass || before.DataUsable == domain.Pass {
		return nil, nil
	}
	b, err := o.db.Bindings().Get(ctx, after.BindingID)
	if err != nil {
		return nil, err
	}
	if b.Batch == domain.CombinedBatch {
		return nil, nil
	}
	src, err := o.db.References().GetDataSource(ctx, b.SourceID)
	if err != nil {
		return nil, err
	}
	if src.Assay != "callingcards" {
		return nil, nil
	}

	log := o.log.WithFields(logrus.Fields{"binding_id": b.ID, "regulator_id": b.RegulatorID})
	return o.chain(ctx, log, func(ctx context.Context) ([]Task, error) {
		t, err := o.submit(ctx, KindCombineReplicates, CombineReplicatesPayload{RegulatorID: b.RegulatorID, User: user})
		if err != nil {
			return nil, err
		}
		return []Task{t}, nil
	})
}

// SubmitPromoterSignificance submits a stage directly, without the lock.
func (o *Orchestrator) SubmitPromoterSignificance(ctx context.Context, p PromoterSignificancePayload) (Task, error) {
	return o.submit(ctx, KindPromoterSignificance, p)
}

// SubmitRankResponse submits a stage directly, without the lock.
func (o *Orchestrator) SubmitRankResponse(ctx context.Context, p RankResponsePayload) (Task, error) {
	return o.submit(ctx, KindRankResponse, p)
}

// SubmitCombineReplicates submits a stage directly, without the lock.
func (o *Orchestrator) SubmitCombineReplicates(ctx context.Context, p CombineReplicatesPayload) (Task, error) {
	return o.submit(ctx, KindCombineReplicates, p)
}

func (o *Orchestrator) submit(ctx context.Context, kind Kind, payload any) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, xe.Wrap(err)
	}
	t, err := o.queue.Submit(ctx, kind, body)
	if err != nil {
		return Task{}, err
	}
	o.log.WithFields(logrus.Fields{"task": kind, "task_id": t.ID}).Debug("[task] submitted")
	if !o.inline {
		return t, nil
	}

	claimed, ok, err := o.queue.ClaimByID(ctx, t.ID, o.conf.Lease)
	if err != nil {
		return t, err
	}
	if !ok {
		// a worker has taken it.
		return claimed, nil
	}
	if err := o.Run(ctx, claimed); err != nil {
		return claimed, err
	}
	return o.queue.Get(ctx, t.ID)
}
