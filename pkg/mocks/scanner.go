package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fuzzall/fuzzall/internal/scanner"
)

type ScannerMock struct {
	mock.Mock
}

var _ scanner.Scanner = (*ScannerMock)(nil)

func (m *ScannerMock) ScanTargets(rootDir string) ([]*scanner.Target, error) {
	args := m.Called(rootDir)
	var targets []*scanner.Target
	if args.Get(0) != nil {
		targets = args.Get(0).([]*scanner.Target)
	}
	return targets, args.Error(1)
}
