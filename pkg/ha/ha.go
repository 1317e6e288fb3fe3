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
package ha

import (
	"context"
	"errors"

	"suse.com/hafence/pkg/checker"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/reach"
)

/* what a peer has found out about host */
type Verdict struct {
	Host string `json:"host"`
	Outcome checker.Outcome `json:"outcome"`  /* final: DEAD means fence it */
	Storage checker.Report `json:"storage"`   /* marker or activity evidence */
	Reachable bool `json:"reachable"`
	Vms []string `json:"vms,omitempty"`
	Reach_error string `json:"reach_error,omitempty"`
}

/*
 * Investigator decides whether a peer host is dead, from storage evidence
 * and, when the peer address is known, from its side channel.
 */
type Investigator struct {
	Strategy checker.Strategy
	Pools *pool.Registry
	Reach *reach.Client   /* may be nil */
	Port int
}

/*
 * Investigate host, reachable at addr (empty if unknown).
 * An answering side channel proves the host up whatever the storage says;
 * an unreachable one is only noted, the storage evidence decides.
 */
func (inv *Investigator) Investigate(ctx context.Context, host string, addr string) Verdict {
	var (
		err error
		v Verdict = Verdict{ Host: host }
		listing reach.Listing
		fault *reach.ReachabilityFault
	)
	v.Storage = checker.Check_host(ctx, inv.Strategy, inv.Pools.List(), host)
	v.Outcome = v.Storage.Outcome

	if (inv.Reach != nil && addr != "") {
		listing, err = inv.Reach.Check_vms_running_on_agent(ctx, addr, inv.Port)
		if (err == nil) {
			v.Reachable = true
			v.Vms = listing.Vms
			if (v.Outcome == checker.DEAD) {
				logger.Warn("host %s: storage says DEAD but its agent answers with %d vms, not fencing", host, len(listing.Vms))
			}
			v.Outcome = checker.ALIVE
		} else if (errors.As(err, &fault)) {
			v.Reach_error = fault.Error()
		} else {
			v.Reach_error = err.Error()
		}
	}
	logger.Log("host %s investigated: %s (storage %s, reachable %t)", host, v.Outcome, v.Storage.Outcome, v.Reachable)
	return v
}
