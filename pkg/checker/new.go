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
	"fmt"
	"time"

	mount "k8s.io/mount-utils"

	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/script"
	"suse.com/hafence/pkg/ts"
)

/*
 * Options carries what a Strategy needs beyond its configuration.
 * Volumes and Mounter may be nil.
 */
type Options struct {
	Runner script.Runner
	Volumes Volume_source
	Mounter mount.Interface
	Primitive string
}

func new_marker(cfg config.Checker, scripts config.Scripts, opt Options) *Marker_freshness {
	var m *Marker_freshness = &Marker_freshness{ Mounter: opt.Mounter }

	if (opt.Primitive == config.PRIMITIVE_NATIVE) {
		m.Probe = &File_probe{ Freshness: time.Duration(cfg.Freshness) * time.Second }
	} else {
		m.Probe = &Script_probe{
			Runner: opt.Runner,
			Script: scripts.Heartbeat,
			Script_rbd: scripts.Heartbeat_rbd,
			Timeout: ts.Ms(cfg.Check_timeout),
			Freshness: cfg.Freshness,
		}
	}
	return m
}

/* resolve the strategy once, at configuration time */
func New(kind Kind, cfg config.Checker, scripts config.Scripts, opt Options) (Strategy, error) {
	if (opt.Runner == nil) {
		opt.Runner = script.Exec{}
	}
	switch (kind) {
	case MARKER_FRESHNESS:
		return new_marker(cfg, scripts, opt), nil
	case WORKLOAD_ACTIVITY:
		return &Workload_activity{
			Runner: opt.Runner,
			Script: scripts.Activity,
			Timeout: ts.Ms(cfg.Activity_timeout),
			Suspect_time: cfg.Suspect_time,
			Volumes: opt.Volumes,
			Fallback: new_marker(cfg, scripts, opt),
		}, nil
	}
	return nil, fmt.Errorf("unknown check strategy %d", int(kind))
}

/* like New, but parse the kind from the configuration */
func From_config(cfg config.Checker, scripts config.Scripts, opt Options) (Strategy, error) {
	kind, err := Parse_kind(cfg.Strategy)
	if (err != nil) {
		return nil, err
	}
	return New(kind, cfg, scripts, opt)
}
