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
	"strconv"
	"strings"
	"time"

	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/script"
	"suse.com/hafence/pkg/ts"
)

/* Volume_source lists the volumes of host's workloads stored in a pool */
type Volume_source interface {
	Volumes(ref pool.Ref, host string) ([]string, error)
}

/* a fixed set of volumes, supplied by the caller, valid for any pool */
type Volume_list []string

func (v Volume_list) Volumes(ref pool.Ref, host string) ([]string, error) {
	return v, nil
}

/*
 * Workload_activity: has any of the volumes of host shown write activity
 * within the suspect window? With no volume known for a pool there is
 * nothing to observe; Fallback decides then, or the result is INDETERMINATE.
 */
type Workload_activity struct {
	Runner script.Runner
	Script string
	Timeout time.Duration
	Suspect_time int /* seconds */
	Volumes Volume_source
	Fallback Strategy
	Now func() int64
}

func (w *Workload_activity) Evaluate(ctx context.Context, ref pool.Ref, host string) Outcome {
	var (
		err error
		vols []string
		output string
		now int64
		o Outcome
	)
	if (w.Volumes != nil) {
		vols, err = w.Volumes.Volumes(ref, host)
		if (err != nil) {
			logger.Warn("activity check of %s on pool %s: no volume list: %s", host, ref.Uuid, err.Error())
			return INDETERMINATE
		}
	}
	if (len(vols) == 0) {
		if (w.Fallback != nil) {
			return w.Fallback.Evaluate(ctx, ref, host)
		}
		logger.Debug("activity check of %s on pool %s: no volumes", host, ref.Uuid)
		return INDETERMINATE
	}
	if (w.Now != nil) {
		now = w.Now()
	} else {
		now = ts.Epoch()
	}
	var args []string = append(ref.Locator_args(), host, strings.Join(vols, ","),
		strconv.FormatInt(now, 10), strconv.Itoa(w.Suspect_time))

	output, err = w.Runner.Run(ctx, w.Timeout, ref.Env(), w.Script, args...)
	o = outcome_of(output, err)
	if (err != nil) {
		logger.Warn("activity check of %s on pool %s failed: %s", host, ref.Uuid, err.Error())
	}
	logger.Debug("activity check of %s on pool %s (%d volumes): %s", host, ref.Uuid, len(vols), o)
	return o
}
