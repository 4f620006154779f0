// Package mock provides a mock of tasks.Stages for testing.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/opst/yeastregulatorydb/pkg/domain"
	"github.com/opst/yeastregulatorydb/pkg/stages"
)

type MockStages struct {
	Impl struct {
		OutputFormatOf       func(source string) (string, bool)
		PromoterSignificance func(context.Context, stages.PromoterSigRequest) ([]int64, error)
		RankResponse         func(context.Context, stages.RankResponseRequest) ([]int64, error)
		CombineReplicates    func(context.Context, stages.CombineRequest) (domain.Binding, error)
	}
	Calls struct {
		PromoterSignificance []stages.PromoterSigRequest
		RankResponse         []stages.RankResponseRequest
		CombineReplicates    []stages.CombineRequest
	}

	mu sync.Mutex
}

func New() *MockStages {
	return &MockStages{}
}

func (m *MockStages) OutputFormatOf(source string) (string, bool) {
	if m.Impl.OutputFormatOf == nil {
		return "", false
	}
	return m.Impl.OutputFormatOf(source)
}

func (m *MockStages) PromoterSignificance(ctx context.Context, req stages.PromoterSigRequest) ([]int64, error) {
	m.mu.Lock()
	m.Calls.PromoterSignificance = append(m.Calls.PromoterSignificance, req)
	m.mu.Unlock()
	if m.Impl.PromoterSignificance == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.PromoterSignificance(ctx, req)
}

func (m *MockStages) RankResponse(ctx context.Context, req stages.RankResponseRequest) ([]int64, error) {
	m.mu.Lock()
	m.Calls.RankResponse = append(m.Calls.RankResponse, req)
	m.mu.Unlock()
	if m.Impl.RankResponse == nil {
		return nil, errors.New("[MOCK] not implemented")
	}
	return m.Impl.RankResponse(ctx, req)
}

func (m *MockStages) CombineReplicates(ctx context.Context, req stages.CombineRequest) (domain.Binding, error) {
	m.mu.Lock()
	m.Calls.CombineReplicates = append(m.Calls.CombineReplicates, req)
	m.mu.Unlock()
	if m.Impl.CombineReplicates == nil {
		return domain.Binding{}, errors.New("[MOCK] not implemented")
	}
	return m.Impl.CombineReplicates(ctx, req)
}
