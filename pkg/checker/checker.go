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
	"fmt"
	"os"
	"strings"

	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
	. "suse.com/hafence/pkg/constants"
)

/*
 * Outcome of one liveness evaluation of a host.
 * INDETERMINATE means the check itself could not run; it must be treated
 * like ALIVE, we never fence on inconclusive evidence.
 */
type Outcome int

const (
	INDETERMINATE Outcome = iota
	ALIVE
	DEAD
)

func (o Outcome) String() string {
	switch (o) {
	case ALIVE:
		return "ALIVE"
	case DEAD:
		return "DEAD"
	}
	return "INDETERMINATE"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch (strings.ToUpper(string(text))) {
	case "ALIVE":
		*o = ALIVE
	case "DEAD":
		*o = DEAD
	case "INDETERMINATE":
		*o = INDETERMINATE
	default:
		return fmt.Errorf("invalid outcome '%s'", string(text))
	}
	return nil
}

/*
 * Strategy decides the Outcome for host on one pool, seen from somewhere
 * else than host itself. Implementations never fail: faults collapse
 * into INDETERMINATE.
 */
type Strategy interface {
	Evaluate(ctx context.Context, ref pool.Ref, host string) Outcome
}

type Kind int

const (
	MARKER_FRESHNESS Kind = iota
	WORKLOAD_ACTIVITY
)

func (k Kind) String() string {
	switch (k) {
	case MARKER_FRESHNESS:
		return "marker"
	case WORKLOAD_ACTIVITY:
		return "activity"
	}
	return "unknown"
}

func Parse_kind(s string) (Kind, error) {
	switch (strings.ToLower(s)) {
	case "marker", "":
		return MARKER_FRESHNESS, nil
	case "activity":
		return WORKLOAD_ACTIVITY, nil
	}
	return MARKER_FRESHNESS, fmt.Errorf("unknown check strategy '%s'", s)
}

/* map the text of a check primitive to an Outcome */
func outcome_of(output string, err error) Outcome {
	if (err != nil) {
		return INDETERMINATE
	}
	if (strings.Contains(output, DEAD_TOKEN)) {
		return DEAD
	}
	return ALIVE
}

/* run a strategy, making sure not even a panic gets out */
func evaluate(ctx context.Context, s Strategy, ref pool.Ref, host string) (o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("check of host %s on pool %s panicked: %v", host, ref.Uuid, r)
			o = INDETERMINATE
		}
	}()
	return s.Evaluate(ctx, ref, host)
}

var errNoMarker = errors.New("no marker")

func is_not_exist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
