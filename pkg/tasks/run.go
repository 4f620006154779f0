package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	xe "github.com/opst/yeastregulatorydb/pkg/errors"
	"github.com/opst/yeastregulatorydb/pkg/metrics"
	"github.com/opst/yeastregulatorydb/pkg/stages"
	"github.com/sirupsen/logrus"
)

// Run runs a claimed task and records its outcome on the queue.
//
// A retryable failure is scheduled to be retried per the retry policy until its budget is exhausted,
// and then the task fails. Other failures fail the task at once.
//
// The returned error is about recording the outcome; failures of the task itself are on the queue.
func (o *Orchestrator) Run(ctx context.Context, t Task) error {
	log := o.log.WithFields(subjectOf(t)).WithFields(logrus.Fields{
		"task": t.Kind, "task_id": t.ID, "attempt": t.Attempts,
	})
	log.Info("[task] start")
	started := time.Now()
	result, err := o.execute(ctx, t)
	elapsed := time.Since(started)

	if err != nil && ctx.Err() != nil {
		log.WithError(err).Warn("[task] interrupted. it will be claimed again when its lease is over")
		return nil
	}
	// outcome should be recorded even when ctx is over.
	ctx = context.WithoutCancel(ctx)

	if err == nil {
		if err := o.queue.Succeed(ctx, t.ID, result); err != nil {
			return err
		}
		o.conf.Metrics.TaskDone(string(t.Kind), metrics.Succeeded, elapsed)
		log.Infof("[task] done in %s", elapsed)
		return nil
	}

	if xe.Retryable(err) && !o.conf.Retry.Exhausted(t.Attempts) {
		runAfter := o.conf.Now().Add(o.conf.Retry.Delay(t.Attempts))
		if rerr := o.queue.Retry(ctx, t.ID, err.Error(), runAfter); rerr != nil {
			return rerr
		}
		o.conf.Metrics.TaskDone(string(t.Kind), metrics.Retried, elapsed)
		log.WithError(err).WithField("run_after", runAfter).Warnf("[task] retry is scheduled after %s", elapsed)
		return nil
	}

	if ferr := o.queue.Fail(ctx, t.ID, err.Error()); ferr != nil {
		return ferr
	}
	o.conf.Metrics.TaskDone(string(t.Kind), metrics.Failed, elapsed)
	log.WithError(err).Errorf("[task] failed in %s", elapsed)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, t Task) ([]byte, error) {
	switch t.Kind {
	case KindPromoterSignificance:
		var p PromoterSignificancePayload
		if err := decode(t, &p); err != nil {
			return nil, err
		}
		ids, err := o.stages.PromoterSignificance(ctx, stages.PromoterSigRequest{
			BindingID:    p.BindingID,
			User:         p.User,
			OutputFormat: p.OutputFormat,
			PromoterID:   p.PromoterID,
			BackgroundID: p.BackgroundID,
			SkipDedup:    p.SkipDedup,
		})
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, err := o.submit(ctx, KindRankResponse, RankResponsePayload{PromoterSetSigID: id, User: p.User}); err != nil {
				return nil, err
			}
		}
		return encode(IDs{IDs: ids})

	case KindRankResponse:
		var p RankResponsePayload
		if err := decode(t, &p); err != nil {
			return nil, err
		}
		ids, err := o.stages.RankResponse(ctx, stages.RankResponseRequest{
			PromoterSetSigID: p.PromoterSetSigID,
			User:             p.User,
			ExpressionID:     p.ExpressionID,
			EffectThreshold:  p.EffectThreshold,
			PvalueThreshold:  p.PvalueThreshold,
			Normalize:        p.Normalize,
		})
		if err != nil {
			return nil, err
		}
		return encode(IDs{IDs: ids})

	case KindCombineReplicates:
		var p CombineReplicatesPayload
		if err := decode(t, &p); err != nil {
			return nil, err
		}
		b, err := o.stages.CombineReplicates(ctx, stages.CombineRequest{
			RegulatorID: p.RegulatorID,
			User:        p.User,
			Assay:       p.Assay,
			DataUsable:  domain.QCLabel(p.DataUsable),
		})
		if err != nil {
			return nil, err
		}
		// replicates are deduplicated one by one on combining.
		if _, err := o.submit(ctx, KindPromoterSignificance, PromoterSignificancePayload{
			BindingID: b.ID, User: p.User, SkipDedup: true,
		}); err != nil {
			return nil, err
		}
		return encode(IDs{IDs: []int64{b.ID}})
	}
	return nil, xe.Invalid("kind", "unknown task: %q", t.Kind)
}

func decode(t Task, v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return xe.Invalid("payload", "task %d (%s): %s", t.ID, t.Kind, err)
	}
	return nil
}

func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return b, nil
}

// subjectOf picks ids of records which the task is about, as log fields.
func subjectOf(t Task) logrus.Fields {
	var ids struct {
		BindingID        int64 `json:"binding"`
		PromoterSetSigID int64 `json:"promotersetsig"`
		ExpressionID     int64 `json:"expression"`
		RegulatorID      int64 `json:"regulator"`
	}
	fields := logrus.Fields{}
	if err := json.Unmarshal(t.Payload, &ids); err != nil {
		fields["payload"] = fmt.Sprintf("%q", t.Payload)
		return fields
	}
	for name, id := range map[string]int64{
		"binding_id":        ids.BindingID,
		"promotersetsig_id": ids.PromoterSetSigID,
		"expression_id":     ids.ExpressionID,
		"regulator_id":      ids.RegulatorID,
	} {
		if id != 0 {
			fields[name] = id
		}
	}
	return fields
}
