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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	mount "k8s.io/mount-utils"

	"suse.com/hafence/pkg/heartbeat"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/script"
)

/* Probe reads the marker of host in a pool and reports as text */
type Probe interface {
	Probe(ctx context.Context, ref pool.Ref, host string) (string, error)
}

/*
 * Marker_freshness: is the marker of host younger than the freshness window?
 * When Mounter is set, a file based pool that is not mounted here is mounted
 * first, so that a missing local mount is not mistaken for a dead host.
 */
type Marker_freshness struct {
	Probe Probe
	Mounter mount.Interface
}

func (m *Marker_freshness) Evaluate(ctx context.Context, ref pool.Ref, host string) Outcome {
	var (
		err error
		output string
		o Outcome
	)
	if (m.Mounter != nil && ref.Type.Is_file_based()) {
		err = pool.Ensure_mounted(m.Mounter, &ref)
		if (err != nil) {
			logger.Warn("marker check of %s on pool %s: %s", host, ref.Uuid, err.Error())
			return INDETERMINATE
		}
	}
	output, err = m.Probe.Probe(ctx, ref, host)
	o = outcome_of(output, err)
	if (err != nil) {
		logger.Warn("marker check of %s on pool %s failed: %s", host, ref.Uuid, err.Error())
	}
	logger.Debug("marker check of %s on pool %s: %s", host, ref.Uuid, o)
	return o
}

/* runs the heartbeat helper in read only mode */
type Script_probe struct {
	Runner script.Runner
	Script string
	Script_rbd string
	Timeout time.Duration
	Freshness int /* seconds */
}

func (p *Script_probe) Probe(ctx context.Context, ref pool.Ref, host string) (string, error) {
	var (
		path string = p.Script
		args []string
	)
	if (ref.Type == pool.RBD) {
		path = p.Script_rbd
	}
	args = append(ref.Locator_args(), host, "-r", strconv.Itoa(p.Freshness))
	return p.Runner.Run(ctx, p.Timeout, ref.Env(), path, args...)
}

/*
 * reads the marker file directly, for file based pools.
 * The output carries the status token only: the marker path holds the
 * mount point and host id, which may contain anything.
 */
type File_probe struct {
	Freshness time.Duration
	Now func() time.Time
}

func (p *File_probe) Probe(ctx context.Context, ref pool.Ref, host string) (string, error) {
	var (
		err error
		at time.Time
		now time.Time = time.Now()
		filename string = ref.Marker_path(host)
		age time.Duration
	)
	if (!ref.Type.Is_file_based()) {
		return "", fmt.Errorf("pool %s has no marker files", ref.Uuid)
	}
	if (p.Now != nil) {
		now = p.Now()
	}
	at, err = heartbeat.Read_marker(filename)
	if (is_not_exist(err)) {
		/* the fencing directory is readable but host never wrote there */
		_, err = os.Stat(filepath.Dir(filename))
		if (err != nil) {
			return "", err
		}
		logger.Debug("%s: %s", filename, errNoMarker.Error())
		return errNoMarker.Error() + ", status " + DEAD.String(), nil
	}
	if (err != nil) {
		return "", err
	}
	age = now.Sub(at)
	logger.Debug("%s: age %s", filename, age.Round(time.Second))
	if (age > p.Freshness) {
		return "stale marker, status " + DEAD.String(), nil
	}
	return "fresh marker, status " + ALIVE.String(), nil
}
