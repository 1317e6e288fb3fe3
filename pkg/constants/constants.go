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
package constants

const (
	KiB = 1024
	MiB = 1024 * KiB
)

/* layout on shared and local storage */
const (
	FENCE_DIR = "KVMHA"           /* fencing namespace inside each pool mount */
	MARKER_PREFIX = "hb-"
	REG_DIR = "/vms/xml/"         /* domain XML registry on shared storage, per host */
	STATE_DIR = "/var/lib/hafence"
	POOLS_FILE = "pools.json"
	CONFIG_FILE = "/etc/hafence/hafence.yaml"
)

/* helper scripts, privileged */
const (
	SCRIPT_HEARTBEAT = "/usr/libexec/hafence/kvmheartbeat.sh"
	SCRIPT_HEARTBEAT_RBD = "/usr/libexec/hafence/kvmheartbeat_rbd.sh"
	SCRIPT_ACTIVITY = "/usr/libexec/hafence/kvmvmactivity.sh"
	DEAD_TOKEN = "DEAD"
	RBD_SECRET_ENV = "HAFENCE_RBD_SECRET"
)

/* fencing defaults, seconds unless noted */
const (
	FENCE_INTERVAL = 60
	FENCE_MAX_ATTEMPTS = 5
	FENCE_RETRY_SLEEP_MS = 10000
	FENCE_WRITE_TIMEOUT_MS = 60000
	FENCE_MAX_FAILURES = 3
	CHECK_TIMEOUT_MS = 60000
	ACTIVITY_TIMEOUT_MS = 180000
	CHECK_FRESHNESS = 180
	SUSPECT_TIME = 300
	REG_INTERVAL = 60
)

/* network */
const (
	HTTP_MAX_BODY_LEN = 1048576
	LISTEN_ADDR = ":8250"
	SIDE_CHANNEL_PORT = 8250
	SERF_RPC_ADDR = "127.0.0.1:7373"
	REACH_RETRIES = 3
	REACH_RETRY_SLEEP_MS = 2000
	REACH_TIMEOUT_MS = 5000
	AGENT_UNIT = "hafenced.service"
)
