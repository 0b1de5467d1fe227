package llm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lueurxax/topic-garden/internal/core/domain"
)

// MockClient is a testify mock of Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Triage(ctx context.Context, req TriageRequest) (domain.TriageResult, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(domain.TriageResult), args.Error(1)
}

func (m *MockClient) DetectRedundancy(ctx context.Context, req RedundancyRequest) (RedundancyResult, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(RedundancyResult), args.Error(1)
}

func (m *MockClient) ProposeTopicActions(ctx context.Context, req GardenerRequest) ([]domain.TopicAction, error) {
	args := m.Called(ctx, req)

	if actions := args.Get(0); actions != nil {
		return actions.([]domain.TopicAction), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockClient) Compose(ctx context.Context, task, prompt string) (string, error) {
	args := m.Called(ctx, task, prompt)

	return args.String(0), args.Error(1)
}

func (m *MockClient) Provenance() domain.Provenance {
	args := m.Called()

	return args.Get(0).(domain.Provenance)
}
