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
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"suse.com/hafence/pkg/pool"
)

func write_file(c *qt.C, name string, content string, perm os.FileMode) string {
	var path string = filepath.Join(c.TempDir(), name)
	c.Assert(os.WriteFile(path, []byte(content), perm), qt.IsNil)
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	c := qt.New(t)
	var path string = write_file(c, "hafence.yaml", `
host_id: host-a
fencing:
  max_failures: 4
  action: DESTROYVMS
checker:
  strategy: Activity
pools:
  - uuid: 5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e01
    type: NFS
    source_host: 10.0.0.1
    source_path: /export/primary
    mount_dest: /mnt/p1
`, 0644)
	cfg, err := Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Host_id, qt.Equals, "host-a")
	c.Assert(cfg.Fencing.Max_failures, qt.Equals, 4)
	c.Assert(cfg.Fencing.Action, qt.Equals, DESTROYVMS)
	/* untouched values keep their defaults */
	c.Assert(cfg.Fencing.Max_attempts, qt.Equals, Default().Fencing.Max_attempts)
	c.Assert(cfg.Fencing.Primitive, qt.Equals, PRIMITIVE_SCRIPT)
	c.Assert(cfg.Checker.Strategy, qt.Equals, STRATEGY_ACTIVITY)
	c.Assert(cfg.Pools, qt.HasLen, 1)
	c.Assert(cfg.Pools[0].Mount_dest, qt.Equals, "/mnt/p1")
}

func TestLoadFaults(t *testing.T) {
	c := qt.New(t)
	var fault *ConfigurationFault

	_, err := Load("/nonexistent/hafence.yaml")
	c.Assert(errors.As(err, &fault), qt.IsTrue)

	_, err = Load(write_file(c, "bad.yaml", "fencing: [1, 2", 0644))
	c.Assert(errors.As(err, &fault), qt.IsTrue)

	_, err = Load(write_file(c, "action.yaml", "fencing:\n  action: REBOOT\n", 0644))
	c.Assert(errors.As(err, &fault), qt.IsTrue)
	c.Assert(fault.Field, qt.Equals, "fencing.action")

	_, err = Load(write_file(c, "pool.yaml", "pools:\n  - uuid: nope\n", 0644))
	c.Assert(errors.As(err, &fault), qt.IsTrue)
	c.Assert(fault.Field, qt.Equals, "pools[0]")
}

func TestFencingValidate(t *testing.T) {
	c := qt.New(t)
	var f Fencing = Default_fencing()
	c.Assert(f.Validate(), qt.IsNil)
	f.Max_failures = 0
	c.Assert(f.Validate(), qt.ErrorMatches, "configuration: fencing.max_failures: must be positive")
}

func TestValidateScripts(t *testing.T) {
	c := qt.New(t)
	var cfg Config = Default()
	cfg.Scripts.Heartbeat = write_file(c, "kvmheartbeat.sh", "#!/bin/sh\n", 0755)
	c.Assert(cfg.Validate_scripts(nil), qt.IsNil)

	cfg.Checker.Strategy = STRATEGY_ACTIVITY
	cfg.Scripts.Activity = "/nonexistent/kvmvmactivity.sh"
	var fault *ConfigurationFault
	c.Assert(errors.As(cfg.Validate_scripts(nil), &fault), qt.IsTrue)
	c.Assert(fault.Field, qt.Equals, "scripts.activity")

	/* the native primitive does not need the heartbeat helper */
	cfg = Default()
	cfg.Fencing.Primitive = PRIMITIVE_NATIVE
	cfg.Scripts.Heartbeat = ""
	c.Assert(cfg.Validate_scripts(nil), qt.IsNil)
}

func rbd_pool() pool.Ref {
	return pool.Ref{
		Uuid: "5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e07",
		Type: pool.RBD,
		Source_host: "mon1",
		Source_path: "rbd",
		Source_auth: &pool.Auth{ User: "admin", Secret: "s3cr3t" },
	}
}

func TestNativePrimitiveRefusesBlockPools(t *testing.T) {
	c := qt.New(t)
	var cfg Config = Default()
	cfg.Fencing.Primitive = PRIMITIVE_NATIVE
	cfg.Pools = []pool.Ref{ rbd_pool() }
	c.Assert(cfg.Pools[0].Validate(), qt.IsNil)

	var fault *ConfigurationFault
	c.Assert(errors.As(cfg.Validate(), &fault), qt.IsTrue)
	c.Assert(fault.Field, qt.Equals, "fencing.primitive")

	ref := rbd_pool()
	c.Assert(cfg.Validate_pool(&ref), qt.ErrorMatches, "configuration: fencing.primitive: native markers need a file based pool.*")
}

func TestValidateScriptsCoversGivenPools(t *testing.T) {
	c := qt.New(t)
	var cfg Config = Default()
	cfg.Scripts.Heartbeat = write_file(c, "kvmheartbeat.sh", "#!/bin/sh\n", 0755)
	cfg.Scripts.Heartbeat_rbd = "/nonexistent/kvmheartbeat_rbd.sh"

	/* the pool may come from the persisted list, not the config file */
	var fault *ConfigurationFault
	c.Assert(errors.As(cfg.Validate_scripts([]pool.Ref{ rbd_pool() }), &fault), qt.IsTrue)
	c.Assert(fault.Field, qt.Equals, "scripts.heartbeat_rbd")

	cfg.Scripts.Heartbeat_rbd = write_file(c, "kvmheartbeat_rbd.sh", "#!/bin/sh\n", 0755)
	c.Assert(cfg.Validate_scripts([]pool.Ref{ rbd_pool() }), qt.IsNil)
}
