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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"

	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/script"
	. "suse.com/hafence/pkg/constants"
)

/* what to do once a pool can no longer be proven alive */
type Action string

const (
	IGNORE Action = "IGNORE"         /* log only and keep checking */
	DESTROYVMS Action = "DESTROYVMS" /* destroy the VMs with storage in the pool */
	HARDRESET Action = "HARDRESET"   /* destroy all VMs and reboot the host */
)

func (a Action) Valid() bool {
	switch (a) {
	case IGNORE, DESTROYVMS, HARDRESET:
		return true
	}
	return false
}

const (
	PRIMITIVE_SCRIPT = "script"
	PRIMITIVE_NATIVE = "native"

	STRATEGY_MARKER = "marker"
	STRATEGY_ACTIVITY = "activity"
)

/* fencing parameters, times in milliseconds unless noted */
type Fencing struct {
	Interval int `json:"interval"`           /* seconds between cycles */
	Max_attempts int `json:"max_attempts"`   /* writes per cycle */
	Retry_sleep int `json:"retry_sleep"`     /* between writes of a cycle */
	Write_timeout int `json:"write_timeout"`
	Max_failures int `json:"max_failures"`   /* consecutive failed cycles before escalation */
	Action Action `json:"action"`
	Primitive string `json:"primitive"`      /* script or native */
}

type Checker struct {
	Strategy string `json:"strategy"`        /* marker or activity */
	Check_timeout int `json:"check_timeout"`
	Activity_timeout int `json:"activity_timeout"`
	Freshness int `json:"freshness"`         /* seconds a marker stays fresh */
	Suspect_time int `json:"suspect_time"`   /* seconds of activity lookback */
}

type Scripts struct {
	Heartbeat string `json:"heartbeat"`
	Heartbeat_rbd string `json:"heartbeat_rbd"`
	Activity string `json:"activity"`
}

type Reach struct {
	Retries int `json:"retries"`
	Retry_sleep int `json:"retry_sleep"`
	Timeout int `json:"timeout"`
}

type Config struct {
	Host_id string `json:"host_id"`         /* "" means the libvirt host uuid */
	Listen_addr string `json:"listen_addr"`
	Side_channel_port int `json:"side_channel_port"`
	Serf_rpc_addr string `json:"serf_rpc_addr"` /* "" disables serf */
	State_dir string `json:"state_dir"`
	Reg_dir string `json:"reg_dir"`
	Reg_interval int `json:"reg_interval"`  /* seconds, 0 disables the VM registry */
	Agent_unit string `json:"agent_unit"`
	Fencing Fencing `json:"fencing"`
	Checker Checker `json:"checker"`
	Scripts Scripts `json:"scripts"`
	Reach Reach `json:"reach"`
	Pools []pool.Ref `json:"pools"`
}

type ConfigurationFault struct {
	Field string
	Reason string
}

func (e *ConfigurationFault) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func fault(field string, format string, args ...interface{}) *ConfigurationFault {
	return &ConfigurationFault{ Field: field, Reason: fmt.Sprintf(format, args...) }
}

func Default_fencing() Fencing {
	return Fencing{
		Interval: FENCE_INTERVAL,
		Max_attempts: FENCE_MAX_ATTEMPTS,
		Retry_sleep: FENCE_RETRY_SLEEP_MS,
		Write_timeout: FENCE_WRITE_TIMEOUT_MS,
		Max_failures: FENCE_MAX_FAILURES,
		Action: HARDRESET,
		Primitive: PRIMITIVE_SCRIPT,
	}
}

func Default() Config {
	return Config{
		Listen_addr: LISTEN_ADDR,
		Side_channel_port: SIDE_CHANNEL_PORT,
		Serf_rpc_addr: SERF_RPC_ADDR,
		State_dir: STATE_DIR,
		Reg_dir: REG_DIR,
		Reg_interval: REG_INTERVAL,
		Agent_unit: AGENT_UNIT,
		Fencing: Default_fencing(),
		Checker: Checker{
			Strategy: STRATEGY_MARKER,
			Check_timeout: CHECK_TIMEOUT_MS,
			Activity_timeout: ACTIVITY_TIMEOUT_MS,
			Freshness: CHECK_FRESHNESS,
			Suspect_time: SUSPECT_TIME,
		},
		Scripts: Scripts{
			Heartbeat: SCRIPT_HEARTBEAT,
			Heartbeat_rbd: SCRIPT_HEARTBEAT_RBD,
			Activity: SCRIPT_ACTIVITY,
		},
		Reach: Reach{
			Retries: REACH_RETRIES,
			Retry_sleep: REACH_RETRY_SLEEP_MS,
			Timeout: REACH_TIMEOUT_MS,
		},
	}
}

/*
 * Load a YAML (or JSON) configuration file over the defaults.
 * Any problem is a ConfigurationFault, which is fatal at startup.
 */
func Load(filename string) (Config, error) {
	var (
		err error
		data []byte
		cfg Config = Default()
	)
	data, err = os.ReadFile(filename)
	if (err != nil) {
		return cfg, fault("file", "%s", err.Error())
	}
	err = yaml.Unmarshal(data, &cfg)
	if (err != nil) {
		return cfg, fault("file", "%s: %s", filename, err.Error())
	}
	err = cfg.Validate()
	if (err != nil) {
		return cfg, err
	}
	return cfg, nil
}

func (f *Fencing) Validate() error {
	if (f.Interval <= 0) {
		return fault("fencing.interval", "must be positive")
	}
	if (f.Max_attempts <= 0) {
		return fault("fencing.max_attempts", "must be positive")
	}
	if (f.Retry_sleep < 0) {
		return fault("fencing.retry_sleep", "must not be negative")
	}
	if (f.Write_timeout <= 0) {
		return fault("fencing.write_timeout", "must be positive")
	}
	if (f.Max_failures <= 0) {
		return fault("fencing.max_failures", "must be positive")
	}
	if (!f.Action.Valid()) {
		return fault("fencing.action", "unknown action '%s'", f.Action)
	}
	if (f.Primitive != PRIMITIVE_SCRIPT && f.Primitive != PRIMITIVE_NATIVE) {
		return fault("fencing.primitive", "unknown primitive '%s'", f.Primitive)
	}
	return nil
}

func (cfg *Config) Validate() error {
	var err error
	err = cfg.Fencing.Validate()
	if (err != nil) {
		return err
	}
	cfg.Checker.Strategy = strings.ToLower(cfg.Checker.Strategy)
	if (cfg.Checker.Strategy != STRATEGY_MARKER && cfg.Checker.Strategy != STRATEGY_ACTIVITY) {
		return fault("checker.strategy", "unknown strategy '%s'", cfg.Checker.Strategy)
	}
	if (cfg.Checker.Check_timeout <= 0 || cfg.Checker.Activity_timeout <= 0) {
		return fault("checker", "timeouts must be positive")
	}
	if (cfg.Checker.Freshness <= 0 || cfg.Checker.Suspect_time <= 0) {
		return fault("checker", "freshness and suspect_time must be positive")
	}
	if (cfg.Reach.Retries <= 0 || cfg.Reach.Timeout <= 0 || cfg.Reach.Retry_sleep < 0) {
		return fault("reach", "retries and timeout must be positive")
	}
	if (cfg.Side_channel_port <= 0 || cfg.Side_channel_port > 65535) {
		return fault("side_channel_port", "invalid port %d", cfg.Side_channel_port)
	}
	if (!filepath.IsAbs(cfg.State_dir)) {
		return fault("state_dir", "must be an absolute path")
	}
	for i := range cfg.Pools {
		err = cfg.Pools[i].Validate()
		if (err != nil) {
			return fault(fmt.Sprintf("pools[%d]", i), "%s", err.Error())
		}
		err = cfg.check_primitive(&cfg.Pools[i])
		if (err != nil) {
			return err
		}
	}
	return nil
}

func check_script(field string, path string) error {
	var err error
	if (path == "") {
		return fault(field, "helper script not configured")
	}
	err = script.Check_executable(path)
	if (err != nil) {
		return fault(field, "%s", err.Error())
	}
	return nil
}

/* the heartbeat primitive must be able to write a marker on ref */
func (cfg *Config) check_primitive(ref *pool.Ref) error {
	if (cfg.Fencing.Primitive == PRIMITIVE_NATIVE && !ref.Type.Is_file_based()) {
		return fault("fencing.primitive", "native markers need a file based pool, pool %s is %s", ref.Uuid, ref.Type)
	}
	return nil
}

/*
 * whether ref can be fenced with this configuration. A pool that cannot
 * would fail every cycle and get the host fenced, so it is refused.
 * rbd pools always go through the rbd helper.
 */
func (cfg *Config) Validate_pool(ref *pool.Ref) error {
	var err error = cfg.check_primitive(ref)
	if (err != nil) {
		return err
	}
	if (ref.Type == pool.RBD) {
		return check_script("scripts.heartbeat_rbd", cfg.Scripts.Heartbeat_rbd)
	}
	return nil
}

/* check that the helpers needed by this configuration and pools are installed */
func (cfg *Config) Validate_scripts(pools []pool.Ref) error {
	var err error
	if (cfg.Fencing.Primitive == PRIMITIVE_SCRIPT) {
		err = check_script("scripts.heartbeat", cfg.Scripts.Heartbeat)
		if (err != nil) {
			return err
		}
	}
	if (cfg.Checker.Strategy == STRATEGY_ACTIVITY) {
		err = check_script("scripts.activity", cfg.Scripts.Activity)
		if (err != nil) {
			return err
		}
	}
	for i := range pools {
		err = cfg.Validate_pool(&pools[i])
		if (err != nil) {
			return err
		}
	}
	return nil
}

func (cfg *Config) Pools_file() string {
	return filepath.Join(cfg.State_dir, POOLS_FILE)
}
