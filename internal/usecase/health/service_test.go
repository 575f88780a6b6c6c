package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pinger struct {
	err   error
	block bool
}

func (p *pinger) Ping(ctx context.Context) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		probes     []Probe
		wantStatus Status
		wantChecks map[string]CheckResult
	}{
		{
			name:       "database up",
			probes:     []Probe{Database(&pinger{})},
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{"database": CheckOK},
		},
		{
			name:       "database down",
			probes:     []Probe{Database(&pinger{err: errors.New("connection refused")})},
			wantStatus: Unhealthy,
			wantChecks: map[string]CheckResult{"database": CheckError},
		},
		{
			name: "one of two failing",
			probes: []Probe{
				Database(&pinger{}),
				{Name: "replica", Check: func(context.Context) error { return errors.New("lagging") }},
			},
			wantStatus: Unhealthy,
			wantChecks: map[string]CheckResult{"database": CheckOK, "replica": CheckError},
		},
		{
			name:       "no probes",
			wantStatus: Healthy,
			wantChecks: map[string]CheckResult{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.probes...).Check(context.Background())
			if r.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", r.Status, tt.wantStatus)
			}
			if len(r.Checks) != len(tt.wantChecks) {
				t.Fatalf("checks = %v, want %v", r.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if r.Checks[name] != want {
					t.Errorf("%s = %q, want %q", name, r.Checks[name], want)
				}
			}
		})
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(Database(&pinger{block: true})).WithTimeout(10 * time.Millisecond)

	start := time.Now()
	if r := svc.Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("status = %q, want %q", r.Status, Unhealthy)
	}
	if time.Since(start) > time.Second {
		t.Error("probe did not honour its timeout")
	}
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	if s := New().WithTimeout(0); s.timeout != DefaultTimeout {
		t.Errorf("timeout = %v", s.timeout)
	}
}
