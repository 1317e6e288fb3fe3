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
	"context"
	"time"

	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/ts"
)

/*
 * Run is the owning loop. Every interval it starts a cycle for each
 * RUNNING pool that has none in flight, and collects the outcomes.
 * On cancellation it waits for the cycles in flight and returns.
 */
func (w *Watchdog) Run(ctx context.Context) {
	var (
		interval time.Duration = w.interval()
		ticker *time.Ticker = time.NewTicker(interval)
	)
	defer ticker.Stop()
	logger.Log("fencing watchdog started, host %s, interval %s", w.host, interval)
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			for (len(w.in_flight) > 0) {
				w.complete(<-w.results)
			}
			w.escalations.Wait()
			logger.Log("fencing watchdog stopped")
			return
		case r := <-w.results:
			w.complete(r)
		case <-ticker.C:
			w.tick(ctx)
			if i := w.interval(); i != interval {
				interval = i
				ticker.Reset(interval)
			}
		}
	}
}

func (w *Watchdog) interval() time.Duration {
	w.m.Lock()
	defer w.m.Unlock()
	return time.Duration(w.cfg.Interval) * time.Second
}

/* one synchronous round: start cycles and wait for all of them */
func (w *Watchdog) round(ctx context.Context) {
	w.tick(ctx)
	for (len(w.in_flight) > 0) {
		w.complete(<-w.results)
	}
	w.escalations.Wait()
}

func (w *Watchdog) tick(ctx context.Context) {
	var (
		refs []pool.Ref = w.reg.List()
		registered map[string]bool = make(map[string]bool)
		start []pool.Ref
		cfg config.Fencing
		pruned bool
		stop *escalation
	)
	w.m.Lock()
	for _, ref := range refs {
		registered[ref.Uuid] = true
		st, ok := w.states[ref.Uuid]
		if (!ok) {
			st = &State{ Pool_uuid: ref.Uuid, Status: RUNNING }
			w.states[ref.Uuid] = st
		}
		if (st.Status == TERMINATED || w.in_flight[ref.Uuid]) {
			continue
		}
		w.in_flight[ref.Uuid] = true
		start = append(start, ref)
	}
	/* forget pools detached in the meantime */
	for uuid := range w.states {
		if (!registered[uuid] && !w.in_flight[uuid]) {
			delete(w.states, uuid)
			w.metrics.forget(uuid)
			pruned = true
		}
	}
	/* the last RUNNING pool may have been the one detached */
	if (pruned && !w.stopped && w.all_terminated()) {
		w.stopped = true
		stop = &escalation{ stop_agent: true }
	}
	cfg = w.cfg
	w.m.Unlock()
	if (stop != nil) {
		w.start_escalation(stop)
	}

	for _, ref := range start {
		go func(ref pool.Ref) {
			w.results <- w.run_cycle(ctx, cfg, ref)
		}(ref)
	}
}

/*
 * run_cycle writes the marker up to Max_attempts times. Cancellation is
 * only looked at before the first attempt: once started, a cycle runs to
 * the end, sleeps included.
 */
func (w *Watchdog) run_cycle(ctx context.Context, cfg config.Fencing, ref pool.Ref) result {
	var err error

	if (ctx.Err() != nil) {
		return result{ uuid: ref.Uuid, cancelled: true }
	}
	ctx = context.WithoutCancel(ctx)
	for i := 1; i <= cfg.Max_attempts; i++ {
		err = w.writer.Write_heartbeat(ctx, ref, w.host)
		if (err == nil) {
			return result{ uuid: ref.Uuid }
		}
		logger.Debug("pool %s: heartbeat attempt %d/%d: %s", ref.Uuid, i, cfg.Max_attempts, err.Error())
		if (i < cfg.Max_attempts) {
			w.sleep(ts.Ms(cfg.Retry_sleep))
		}
	}
	return result{ uuid: ref.Uuid, err: err }
}

/* pending escalation, executed outside the lock */
type escalation struct {
	action config.Action      /* empty when only the agent is stopped */
	ref pool.Ref
	failures int
	stop_agent bool
}

/* record the outcome of a cycle; runs in the owning loop */
func (w *Watchdog) complete(r result) {
	delete(w.in_flight, r.uuid)
	if (r.cancelled) {
		return
	}
	var e *escalation
	if (r.err == nil) {
		w.succeed(r.uuid)
	} else {
		e = w.fail(r.uuid, r.err)
	}
	if (e != nil) {
		w.start_escalation(e)
	}
}

/*
 * the action may block on libvirt for a long time, and must not hold up
 * the cycles of the other pools
 */
func (w *Watchdog) start_escalation(e *escalation) {
	w.escalations.Add(1)
	go func() {
		defer w.escalations.Done()
		w.escalate(e)
	}()
}

func (w *Watchdog) succeed(uuid string) {
	w.m.Lock()
	defer w.m.Unlock()
	st, ok := w.states[uuid]
	if (!ok || st.Status == TERMINATED) {
		return
	}
	if (st.Failures > 0) {
		logger.Log("pool %s: heartbeat recovered after %d failed cycles", uuid, st.Failures)
	}
	st.Failures = 0
	st.Escalated = false
	st.Last_error = ""
	st.Last_success = time.Now().UTC()
	w.metrics.cycle(uuid, true, 0)
}

/*
 * fail counts a failed cycle. It returns the escalation to perform when
 * this failure crosses the threshold; the terminal transition is recorded
 * here, so that a pool is escalated at most once.
 */
func (w *Watchdog) fail(uuid string, err error) *escalation {
	var (
		e *escalation
		ref pool.Ref
		ok bool
	)
	w.m.Lock()
	defer w.m.Unlock()
	st, found := w.states[uuid]
	if (!found || st.Status == TERMINATED) {
		return nil
	}
	st.Failures++
	st.Last_error = err.Error()
	w.metrics.cycle(uuid, false, st.Failures)
	logger.Warn("pool %s: heartbeat cycle failed (%d/%d): %s", uuid, st.Failures, w.cfg.Max_failures, err.Error())

	if (st.Failures < w.cfg.Max_failures || st.Escalated) {
		return nil
	}
	ref, ok = w.reg.Get(uuid)
	if (!ok) {
		/* detached while the cycle was running */
		delete(w.states, uuid)
		w.metrics.forget(uuid)
		return nil
	}
	st.Escalated = true
	e = &escalation{ action: w.cfg.Action, ref: ref, failures: st.Failures }
	if (w.cfg.Action != config.IGNORE) {
		st.Status = TERMINATED
		if (!w.stopped && w.all_terminated()) {
			w.stopped = true
			e.stop_agent = true
		}
	}
	return e
}
