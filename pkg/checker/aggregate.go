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

	"golang.org/x/sync/errgroup"

	"suse.com/hafence/pkg/pool"
)

const max_parallel_checks = 8

type Pool_outcome struct {
	Pool_uuid string `json:"pool"`
	Outcome Outcome `json:"outcome"`
}

type Report struct {
	Host string `json:"host"`
	Outcome Outcome `json:"outcome"`
	Pools []Pool_outcome `json:"pools"`
}

/*
 * Aggregate per pool outcomes: DEAD only if every pool says DEAD,
 * INDETERMINATE if there is nothing to look at, ALIVE otherwise.
 */
func Aggregate(outcomes []Outcome) Outcome {
	if (len(outcomes) == 0) {
		return INDETERMINATE
	}
	for _, o := range outcomes {
		if (o != DEAD) {
			return ALIVE
		}
	}
	return DEAD
}

/* evaluate host on all pools concurrently and aggregate */
func Check_host(ctx context.Context, s Strategy, pools []pool.Ref, host string) Report {
	var (
		g errgroup.Group
		outcomes []Outcome = make([]Outcome, len(pools))
		report Report = Report{ Host: host, Pools: make([]Pool_outcome, len(pools)) }
	)
	g.SetLimit(max_parallel_checks)
	for i := range pools {
		i := i
		g.Go(func() error {
			outcomes[i] = evaluate(ctx, s, pools[i], host)
			return nil
		})
	}
	_ = g.Wait()
	for i := range pools {
		report.Pools[i] = Pool_outcome{ Pool_uuid: pools[i].Uuid, Outcome: outcomes[i] }
	}
	report.Outcome = Aggregate(outcomes)
	return report
}
