package metrics

import (
	"context"
	"fmt"

	"github.com/larsks/oledstats/internal/command"
)

// ServiceChecker reports whether a daemon is running.
type ServiceChecker struct {
	runner   command.Runner
	unit     string
	fallback []string
}

// NewServiceChecker queries unit through systemctl. When systemctl is
// not installed, fallback (a command and its arguments) is run instead
// and a zero exit status means the service is up.
func NewServiceChecker(runner command.Runner, unit string, fallback []string) *ServiceChecker {
	return &ServiceChecker{
		runner:   runner,
		unit:     unit,
		fallback: fallback,
	}
}

func (s *ServiceChecker) Active(ctx context.Context) (bool, error) {
	_, err := s.runner.Output(ctx, "systemctl", "is-active", "--quiet", s.unit)
	switch {
	case err == nil:
		return true, nil
	case command.IsExitError(err):
		return false, nil
	case command.IsNotFound(err):
		return s.probe(ctx)
	}
	return false, fmt.Errorf("failed to query %s: %w", s.unit, err)
}

func (s *ServiceChecker) probe(ctx context.Context) (bool, error) {
	if len(s.fallback) == 0 {
		return false, nil
	}

	_, err := s.runner.Output(ctx, s.fallback[0], s.fallback[1:]...)
	switch {
	case err == nil:
		return true, nil
	case command.IsExitError(err), command.IsNotFound(err):
		return false, nil
	}
	return false, fmt.Errorf("failed to probe %s with %s: %w", s.unit, s.fallback[0], err)
}
