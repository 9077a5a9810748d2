// Package stats exposes server counters over expvar. Counters are
// mutated through a single goroutine so callers never contend on the
// hot path.
package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// metricDelta is one pending counter adjustment.
type metricDelta struct {
	name  string
	delta int64
}

type StatsUpdater struct {
	vars   *expvar.Map
	deltas chan metricDelta
}

// NewStatsUpdater publishes the taskhive-stats expvar map and mounts
// its JSON view on the mux at /debug/vars.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:   expvar.NewMap("taskhive-stats"),
		deltas: make(chan metricDelta, 512),
	}

	started := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(started).Milliseconds()
	}))

	mux.HandleFunc("GET /debug/vars", su.serveVars)

	return su
}

func (su *StatsUpdater) serveVars(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	// expvar.Var values stringify as valid JSON
	out := make(map[string]json.RawMessage)
	su.vars.Do(func(kv expvar.KeyValue) {
		out[kv.Key] = json.RawMessage(kv.Value.String())
	})

	json.NewEncoder(w).Encode(out)
}

// RegisterMetric adds a named counter. Metrics must be registered
// before the first Incr or Decr for that name.
func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Incr(name string) {
	su.deltas <- metricDelta{name: name, delta: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.deltas <- metricDelta{name: name, delta: -1}
}

// Run starts the goroutine that applies queued deltas.
func (su *StatsUpdater) Run() {
	go func() {
		for d := range su.deltas {
			counter, ok := su.vars.Get(d.name).(*expvar.Int)
			if !ok {
				panic("unregistered metric: " + d.name)
			}

			counter.Add(d.delta)
		}
	}()
}

func (su *StatsUpdater) Stop() {
	close(su.deltas)
}
