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
package checker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/heartbeat"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/script"
)

const (
	uuid1 = "5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e01"
	uuid2 = "5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e02"
)

func nfs_pool(uuid string, dest string) pool.Ref {
	return pool.Ref{ Uuid: uuid, Type: pool.NFS, Source_host: "10.0.0.1", Source_path: "/export", Mount_dest: dest }
}

func fixed_runner(output string, err error) script.Runner {
	return script.Runner_func(func(ctx context.Context, timeout time.Duration, env []string, path string, args ...string) (string, error) {
		return output, err
	})
}

func TestOutcomeOfScriptOutput(t *testing.T) {
	c := qt.New(t)
	s := &Marker_freshness{ Probe: &Script_probe{ Runner: fixed_runner("hb-host-b ... status DEAD\n", nil), Script: "/hb.sh", Timeout: time.Second, Freshness: 60 } }
	c.Assert(s.Evaluate(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b"), qt.Equals, DEAD)

	s.Probe = &Script_probe{ Runner: fixed_runner("", nil), Script: "/hb.sh", Timeout: time.Second }
	c.Assert(s.Evaluate(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b"), qt.Equals, ALIVE)

	/* a failing probe proves nothing, even if it printed DEAD */
	s.Probe = &Script_probe{ Runner: fixed_runner("DEAD", errors.New("exit status 2")), Script: "/hb.sh", Timeout: time.Second }
	c.Assert(s.Evaluate(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b"), qt.Equals, INDETERMINATE)
}

func TestScriptProbeArgs(t *testing.T) {
	c := qt.New(t)
	var got []string
	p := &Script_probe{
		Runner: script.Runner_func(func(ctx context.Context, timeout time.Duration, env []string, path string, args ...string) (string, error) {
			got = append([]string{ path }, args...)
			return "", nil
		}),
		Script: "/hb.sh", Timeout: time.Second, Freshness: 180,
	}
	_, err := p.Probe(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{ "/hb.sh", "10.0.0.1", "/export", "/mnt/p1", "host-b", "-r", "180" })
}

func TestFileProbeRoundTrip(t *testing.T) {
	c := qt.New(t)
	var ref pool.Ref = nfs_pool(uuid1, c.TempDir())
	w := &heartbeat.File_writer{ Timeout: 5 * time.Second }
	c.Assert(w.Write_heartbeat(context.Background(), ref, "host-b"), qt.IsNil)

	probe := &File_probe{ Freshness: time.Minute }
	s := &Marker_freshness{ Probe: probe }
	c.Assert(s.Evaluate(context.Background(), ref, "host-b"), qt.Equals, ALIVE)

	probe.Now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	c.Assert(s.Evaluate(context.Background(), ref, "host-b"), qt.Equals, DEAD)
}

func TestFileProbeIgnoresMarkerPath(t *testing.T) {
	c := qt.New(t)
	var dest string = filepath.Join(c.TempDir(), "DEADLINE-pool")
	c.Assert(os.MkdirAll(dest, 0755), qt.IsNil)
	var ref pool.Ref = nfs_pool(uuid1, dest)
	w := &heartbeat.File_writer{ Timeout: 5 * time.Second }
	c.Assert(w.Write_heartbeat(context.Background(), ref, "DEADBEEF"), qt.IsNil)

	probe := &File_probe{ Freshness: time.Minute }
	output, err := probe.Probe(context.Background(), ref, "DEADBEEF")
	c.Assert(err, qt.IsNil)
	c.Assert(output, qt.Not(qt.Contains), "DEADLINE")
	s := &Marker_freshness{ Probe: probe }
	c.Assert(s.Evaluate(context.Background(), ref, "DEADBEEF"), qt.Equals, ALIVE)
}

func TestFileProbeMissingMarker(t *testing.T) {
	c := qt.New(t)
	var ref pool.Ref = nfs_pool(uuid1, c.TempDir())
	s := &Marker_freshness{ Probe: &File_probe{ Freshness: time.Minute } }

	/* no fencing directory at all: we cannot read the pool */
	c.Assert(s.Evaluate(context.Background(), ref, "host-b"), qt.Equals, INDETERMINATE)

	c.Assert(os.MkdirAll(filepath.Join(ref.Mount_dest, "KVMHA"), 0755), qt.IsNil)
	c.Assert(s.Evaluate(context.Background(), ref, "host-b"), qt.Equals, DEAD)
}

func TestActivityArgs(t *testing.T) {
	c := qt.New(t)
	var got []string
	s := &Workload_activity{
		Runner: script.Runner_func(func(ctx context.Context, timeout time.Duration, env []string, path string, args ...string) (string, error) {
			got = args
			return "", nil
		}),
		Script: "/activity.sh", Timeout: time.Second, Suspect_time: 300,
		Volumes: Volume_list{ "vol-a", "vol-b" },
		Now: func() int64 { return 1700000000 },
	}
	c.Assert(s.Evaluate(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b"), qt.Equals, ALIVE)
	c.Assert(got, qt.DeepEquals, []string{ "10.0.0.1", "/export", "/mnt/p1", "host-b", "vol-a,vol-b", "1700000000", "300" })
}

type constant Outcome

func (k constant) Evaluate(ctx context.Context, ref pool.Ref, host string) Outcome {
	return Outcome(k)
}

func TestActivityWithoutVolumes(t *testing.T) {
	c := qt.New(t)
	s := &Workload_activity{ Runner: fixed_runner("DEAD", nil), Script: "/activity.sh", Timeout: time.Second }
	c.Assert(s.Evaluate(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b"), qt.Equals, INDETERMINATE)

	s.Fallback = constant(DEAD)
	c.Assert(s.Evaluate(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b"), qt.Equals, DEAD)

	s.Volumes = Volume_list{ "vol-a" }
	s.Runner = fixed_runner("activity seen, status ALIVE", nil)
	c.Assert(s.Evaluate(context.Background(), nfs_pool(uuid1, "/mnt/p1"), "host-b"), qt.Equals, ALIVE)
}

func TestAggregate(t *testing.T) {
	c := qt.New(t)
	c.Assert(Aggregate(nil), qt.Equals, INDETERMINATE)
	c.Assert(Aggregate([]Outcome{ DEAD, DEAD }), qt.Equals, DEAD)
	c.Assert(Aggregate([]Outcome{ DEAD, INDETERMINATE }), qt.Equals, ALIVE)
	c.Assert(Aggregate([]Outcome{ DEAD, ALIVE, DEAD }), qt.Equals, ALIVE)
	c.Assert(Aggregate([]Outcome{ INDETERMINATE }), qt.Equals, ALIVE)
}

/* answers by pool, and remembers who asked */
type by_pool struct {
	m sync.Mutex
	outcomes map[string]Outcome
	seen []string
}

func (b *by_pool) Evaluate(ctx context.Context, ref pool.Ref, host string) Outcome {
	b.m.Lock()
	defer b.m.Unlock()
	b.seen = append(b.seen, ref.Uuid)
	if (ref.Uuid == "panic") {
		panic("boom")
	}
	return b.outcomes[ref.Uuid]
}

func TestCheckHost(t *testing.T) {
	c := qt.New(t)
	var pools []pool.Ref = []pool.Ref{ nfs_pool(uuid1, "/mnt/p1"), nfs_pool(uuid2, "/mnt/p2") }
	s := &by_pool{ outcomes: map[string]Outcome{ uuid1: DEAD, uuid2: DEAD } }
	c.Assert(Check_host(context.Background(), s, pools, "host-b").Outcome, qt.Equals, DEAD)
	c.Assert(s.seen, qt.HasLen, 2)

	s.outcomes[uuid2] = INDETERMINATE
	report := Check_host(context.Background(), s, pools, "host-b")
	c.Assert(report.Outcome, qt.Equals, ALIVE)
	c.Assert(report.Pools, qt.DeepEquals, []Pool_outcome{ { uuid1, DEAD }, { uuid2, INDETERMINATE } })

	c.Assert(Check_host(context.Background(), s, nil, "host-b").Outcome, qt.Equals, INDETERMINATE)
}

func TestCheckHostSurvivesPanic(t *testing.T) {
	c := qt.New(t)
	s := &by_pool{ outcomes: map[string]Outcome{ uuid1: DEAD } }
	var pools []pool.Ref = []pool.Ref{ nfs_pool(uuid1, "/mnt/p1"), { Uuid: "panic" } }
	c.Assert(Check_host(context.Background(), s, pools, "host-b").Outcome, qt.Equals, ALIVE)
}

func TestNew(t *testing.T) {
	c := qt.New(t)
	var cfg config.Config = config.Default()

	s, err := New(MARKER_FRESHNESS, cfg.Checker, cfg.Scripts, Options{ Primitive: config.PRIMITIVE_NATIVE })
	c.Assert(err, qt.IsNil)
	_, ok := s.(*Marker_freshness).Probe.(*File_probe)
	c.Assert(ok, qt.IsTrue)

	s, err = New(MARKER_FRESHNESS, cfg.Checker, cfg.Scripts, Options{})
	c.Assert(err, qt.IsNil)
	_, ok = s.(*Marker_freshness).Probe.(*Script_probe)
	c.Assert(ok, qt.IsTrue)

	cfg.Checker.Strategy = "Activity"
	s, err = From_config(cfg.Checker, cfg.Scripts, Options{})
	c.Assert(err, qt.IsNil)
	_, ok = s.(*Workload_activity)
	c.Assert(ok, qt.IsTrue)

	_, err = Parse_kind("coin-toss")
	c.Assert(err, qt.ErrorMatches, "unknown check strategy.*")
}

func TestOutcomeText(t *testing.T) {
	c := qt.New(t)
	var o Outcome
	c.Assert(o.UnmarshalText([]byte("dead")), qt.IsNil)
	c.Assert(o, qt.Equals, DEAD)
	b, _ := ALIVE.MarshalText()
	c.Assert(string(b), qt.Equals, "ALIVE")
}
