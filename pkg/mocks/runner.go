package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/internal/scheduler"
)

type TargetRunnerMock struct {
	mock.Mock
}

var _ scheduler.TargetRunner = (*TargetRunnerMock)(nil)

func (m *TargetRunnerMock) Run(ctx context.Context, target *scanner.Target, logPath string) error {
	args := m.Called(ctx, target, logPath)
	return args.Error(0)
}
