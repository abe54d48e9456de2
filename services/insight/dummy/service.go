// Package dummyinsight is a canned core.InsightService for development
// and tests: no network, deterministic output, injectable failures.
package dummyinsight

import (
	"context"
	"sync"

	"github.com/trezcool/umahiri/core"
)

type Service struct {
	mu sync.Mutex

	// Response is returned by every Suggest call unless Err is set.
	Response string
	// Err, when set, makes every Suggest call fail.
	Err error
	// Prompts records every prompt received, in order.
	Prompts []string
}

var _ core.InsightService = (*Service)(nil)

func NewService(response string) *Service {
	return &Service{Response: response}
}

func (svc *Service) Suggest(_ context.Context, prompt string) (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.Prompts = append(svc.Prompts, prompt)
	if svc.Err != nil {
		return "", svc.Err
	}
	return svc.Response, nil
}
