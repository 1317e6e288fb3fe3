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
	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/logger"
)

/* perform an escalation recorded by fail() or tick(). Never called with w.m held */
func (w *Watchdog) escalate(e *escalation) {
	var err error

	if (e.action != "") {
		w.act(e)
	}
	if (e.stop_agent) {
		logger.Alert("host %s can no longer prove liveness on any pool, stopping the agent", w.host)
		err = w.ex.Stop_agent()
		if (err != nil) {
			logger.Alert("failed to stop the agent: %s", err.Error())
		}
	}
}

func (w *Watchdog) act(e *escalation) {
	var err error

	w.metrics.escalated(e.ref.Uuid, e.action)
	logger.Alert("host %s lost its heartbeat on pool %s (%s) after %d failed cycles, action %s",
		w.host, e.ref.Uuid, e.ref.Source(), e.failures, e.action)

	switch (e.action) {
	case config.IGNORE:
		logger.Warn("pool %s: action IGNORE, heartbeat attempts continue", e.ref.Uuid)
	case config.DESTROYVMS:
		err = w.ex.Destroy_pool_workloads(e.ref)
		if (err != nil) {
			logger.Alert("pool %s: failed to destroy VMs: %s", e.ref.Uuid, err.Error())
		}
	case config.HARDRESET:
		err = w.ex.Hard_reset()
		if (err != nil) {
			logger.Alert("pool %s: hard reset failed: %s", e.ref.Uuid, err.Error())
		}
	}
}
