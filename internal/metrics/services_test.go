package metrics

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

type fakeResult struct {
	out []byte
	err error
}

// fakeRunner answers commands by name and records every invocation.
type fakeRunner struct {
	results map[string]fakeResult
	calls   []string
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	res, ok := f.results[name]
	if !ok {
		return nil, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
	return res.out, res.err
}

var (
	errExit     = &exec.ExitError{}
	errNotFound = &exec.Error{Name: "systemctl", Err: exec.ErrNotFound}
)

func TestServiceChecker_Active(t *testing.T) {
	tests := []struct {
		name      string
		results   map[string]fakeResult
		fallback  []string
		want      bool
		wantError bool
		wantCalls []string
	}{
		{
			name:      "active unit",
			results:   map[string]fakeResult{"systemctl": {}},
			fallback:  []string{"docker", "info"},
			want:      true,
			wantCalls: []string{"systemctl is-active --quiet docker"},
		},
		{
			name:      "inactive unit",
			results:   map[string]fakeResult{"systemctl": {err: errExit}},
			fallback:  []string{"docker", "info"},
			want:      false,
			wantCalls: []string{"systemctl is-active --quiet docker"},
		},
		{
			name:      "no systemctl, fallback succeeds",
			results:   map[string]fakeResult{"docker": {}},
			fallback:  []string{"docker", "info"},
			want:      true,
			wantCalls: []string{"systemctl is-active --quiet docker", "docker info"},
		},
		{
			name:      "no systemctl, fallback fails",
			results:   map[string]fakeResult{"docker": {err: errExit}},
			fallback:  []string{"docker", "info"},
			want:      false,
			wantCalls: []string{"systemctl is-active --quiet docker", "docker info"},
		},
		{
			name:      "no systemctl, no fallback binary",
			results:   map[string]fakeResult{},
			fallback:  []string{"docker", "info"},
			want:      false,
			wantCalls: []string{"systemctl is-active --quiet docker", "docker info"},
		},
		{
			name:      "no systemctl, no fallback configured",
			results:   map[string]fakeResult{"systemctl": {err: errNotFound}},
			want:      false,
			wantCalls: []string{"systemctl is-active --quiet docker"},
		},
		{
			name:      "systemctl timed out",
			results:   map[string]fakeResult{"systemctl": {err: context.DeadlineExceeded}},
			want:      false,
			wantError: true,
			wantCalls: []string{"systemctl is-active --quiet docker"},
		},
		{
			name:      "fallback timed out",
			results:   map[string]fakeResult{"docker": {err: errors.New("signal: killed")}},
			fallback:  []string{"docker", "info"},
			want:      false,
			wantError: true,
			wantCalls: []string{"systemctl is-active --quiet docker", "docker info"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: tt.results}
			got, err := NewServiceChecker(runner, "docker", tt.fallback).Active(context.Background())

			if (err != nil) != tt.wantError {
				t.Errorf("Expected error=%v, got %v", tt.wantError, err)
			}
			if got != tt.want {
				t.Errorf("Expected active=%v, got %v", tt.want, got)
			}
			if strings.Join(runner.calls, "|") != strings.Join(tt.wantCalls, "|") {
				t.Errorf("Expected calls %q, got %q", tt.wantCalls, runner.calls)
			}
		})
	}
}
