/*
 * Copyright (c) 2024-2025 SUSE LLC
 *
 * This program is free software; you can redistribute it and/or
 * modify it under the terms of the GNU General Public License
 * as published by the Free Software Foundation; either version 2
 * of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, see
 * <https://www.gnu.org/licenses/>
 */
package fence

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/heartbeat"
	"suse.com/hafence/pkg/pool"
)

type Status int

const (
	RUNNING Status = iota
	TERMINATED
)

func (s Status) String() string {
	if (s == TERMINATED) {
		return "TERMINATED"
	}
	return "RUNNING"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch (string(text)) {
	case "RUNNING":
		*s = RUNNING
	case "TERMINATED":
		*s = TERMINATED
	default:
		return fmt.Errorf("invalid status '%s'", string(text))
	}
	return nil
}

/* fencing state of one tracked pool */
type State struct {
	Pool_uuid string `json:"pool"`
	Failures int `json:"failures"`        /* consecutive failed cycles */
	Status Status `json:"status"`
	Last_success time.Time `json:"last_success"`
	Last_error string `json:"last_error,omitempty"`
	Escalated bool `json:"escalated"`
}

/* the destructive side of fencing, implemented against the hypervisor */
type Executor interface {
	Destroy_pool_workloads(ref pool.Ref) error
	Hard_reset() error
	Stop_agent() error
}

/* outcome of one cycle, sent back to the owning loop */
type result struct {
	uuid string
	err error
	cancelled bool
}

/*
 * Watchdog keeps proving liveness of this host on every registered pool,
 * and fences the host when it no longer can.
 */
type Watchdog struct {
	host string
	reg *pool.Registry
	writer heartbeat.Writer
	ex Executor

	m sync.Mutex                 /* protects cfg, states, stopped */
	cfg config.Fencing
	states map[string]*State
	stopped bool                 /* Stop_agent has been requested */

	in_flight map[string]bool    /* owned by the Run loop */
	results chan result
	escalations sync.WaitGroup   /* actions in progress */
	sleep func(time.Duration)
	metrics *collector
}

func New(host string, cfg config.Fencing, reg *pool.Registry, writer heartbeat.Writer, ex Executor) *Watchdog {
	return &Watchdog{
		host: host,
		reg: reg,
		writer: writer,
		ex: ex,
		cfg: cfg,
		states: make(map[string]*State),
		in_flight: make(map[string]bool),
		results: make(chan result),
		sleep: time.Sleep,
		metrics: new_collector(),
	}
}

/* replace the fencing parameters; they apply from the next cycle */
func (w *Watchdog) Configure(cfg config.Fencing) error {
	var err error = cfg.Validate()
	if (err != nil) {
		return err
	}
	w.m.Lock()
	defer w.m.Unlock()
	w.cfg = cfg
	return nil
}

func (w *Watchdog) Config() config.Fencing {
	w.m.Lock()
	defer w.m.Unlock()
	return w.cfg
}

func (w *Watchdog) State(uuid string) (State, bool) {
	w.m.Lock()
	defer w.m.Unlock()
	st, ok := w.states[uuid]
	if (!ok) {
		return State{}, false
	}
	return *st, true
}

func (w *Watchdog) States() []State {
	var list []State
	w.m.Lock()
	for _, st := range w.states {
		list = append(list, *st)
	}
	w.m.Unlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].Pool_uuid < list[j].Pool_uuid
	})
	return list
}

/* every tracked pool is TERMINATED. Call with w.m held */
func (w *Watchdog) all_terminated() bool {
	if (len(w.states) == 0) {
		return false
	}
	for _, st := range w.states {
		if (st.Status != TERMINATED) {
			return false
		}
	}
	return true
}
