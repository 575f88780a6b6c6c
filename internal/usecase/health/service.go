// Package health reports whether lanefuse can serve requests.
package health

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	Healthy   Status = "ok"
	Unhealthy Status = "error"
)

type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// DefaultTimeout bounds each probe.
const DefaultTimeout = 2 * time.Second

// Pinger is satisfied by db.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe is one named dependency check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Database probes the record store. Lanes, runs and documents all live
// there, so its failure makes the whole service unhealthy.
func Database(p Pinger) Probe {
	return Probe{Name: "database", Check: p.Ping}
}

// Report is the outcome of one Check call. Status is Unhealthy when any
// probe failed.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type Service struct {
	probes  []Probe
	timeout time.Duration
}

func New(probes ...Probe) *Service {
	return &Service{probes: probes, timeout: DefaultTimeout}
}

// WithTimeout overrides the per-probe timeout; non-positive values are ignored.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all probes concurrently.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))
	var wg sync.WaitGroup
	for i, p := range s.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = CheckOK
			if err := p.Check(pctx); err != nil {
				results[i] = CheckError
			}
		}()
	}
	wg.Wait()

	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.probes))}
	for i, p := range s.probes {
		r.Checks[p.Name] = results[i]
		if results[i] != CheckOK {
			r.Status = Unhealthy
		}
	}
	return r
}
