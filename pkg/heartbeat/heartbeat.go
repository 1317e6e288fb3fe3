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
package heartbeat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mount "k8s.io/mount-utils"

	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/script"
	"suse.com/hafence/pkg/ts"
)

/*
 * Writer proves the liveness of host on one pool by advancing its marker.
 * It never retries: a single attempt, bounded by the write timeout.
 * Retrying is the watchdog's job, which needs to see failures over time.
 */
type Writer interface {
	Write_heartbeat(ctx context.Context, ref pool.Ref, host string) error
}

type WriteError struct {
	Pool string
	Output string /* raw diagnostic text of the primitive */
	Err error
}

func (e *WriteError) Error() string {
	var msg string = fmt.Sprintf("heartbeat write to pool %s failed: %v", e.Pool, e.Err)
	var out string = strings.TrimSpace(e.Output)
	if (out != "") {
		msg += ": " + out
	}
	return msg
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

/* writes through the privileged helper scripts */
type Script_writer struct {
	Runner script.Runner
	Script string      /* file based pools */
	Script_rbd string  /* block pools */
	Timeout time.Duration
	Interval int       /* update frequency hint for the helper, seconds */
}

func (w *Script_writer) Write_heartbeat(ctx context.Context, ref pool.Ref, host string) error {
	var (
		err error
		output string
		path string = w.Script
		args []string
	)
	if (ref.Type == pool.RBD) {
		path = w.Script_rbd
	}
	args = append(ref.Locator_args(), host, strconv.Itoa(w.Interval))
	output, err = w.Runner.Run(ctx, w.Timeout, ref.Env(), path, args...)
	if (err != nil) {
		return &WriteError{ Pool: ref.Uuid, Output: output, Err: err }
	}
	return nil
}

/*
 * File_writer writes the marker itself, for file based pools mounted locally.
 * The payload is the epoch seconds of the write; the mtime carries the same.
 * If Mounter is set the pool must be mounted, otherwise we would happily
 * write into the local root filesystem while the share is gone.
 */
type File_writer struct {
	Mounter mount.Interface
	Timeout time.Duration
}

func (w *File_writer) Write_heartbeat(ctx context.Context, ref pool.Ref, host string) error {
	var (
		err error
		done chan error = make(chan error, 1)
		timer *time.Timer
	)
	if (!ref.Type.Is_file_based()) {
		return &WriteError{ Pool: ref.Uuid, Err: fmt.Errorf("native markers need a file based pool, not %s", ref.Type) }
	}
	if (w.Mounter != nil) {
		var mounted bool
		mounted, err = pool.Is_mounted(w.Mounter, &ref)
		if (err != nil) {
			return &WriteError{ Pool: ref.Uuid, Err: err }
		}
		if (!mounted) {
			return &WriteError{ Pool: ref.Uuid, Err: fmt.Errorf("%s is not mounted", ref.Mount_dest) }
		}
	}
	/* a hung NFS server blocks the write forever, the goroutine is abandoned then */
	go func() {
		done <- write_marker(ref.Marker_path(host))
	}()
	timer = time.NewTimer(w.Timeout)
	defer timer.Stop()
	select {
	case err = <-done:
	case <-timer.C:
		err = fmt.Errorf("%w after %s", script.ErrTimeout, w.Timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if (err != nil) {
		return &WriteError{ Pool: ref.Uuid, Err: err }
	}
	return nil
}

func write_marker(filename string) error {
	var err error
	err = os.MkdirAll(filepath.Dir(filename), 0755)
	if (err != nil) {
		return err
	}
	return pool.Write_file_atomic(filename, []byte(strconv.FormatInt(ts.Epoch(), 10) + "\n"), 0644)
}

/*
 * read back a marker: the payload timestamp if readable, else the mtime.
 * Used by the native freshness probe.
 */
func Read_marker(filename string) (time.Time, error) {
	var (
		err error
		data []byte
		fi os.FileInfo
		secs int64
	)
	data, err = os.ReadFile(filename)
	if (err != nil) {
		return time.Time{}, err
	}
	secs, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if (err == nil && secs > 0) {
		return time.Unix(secs, 0), nil
	}
	fi, err = os.Stat(filename)
	if (err != nil) {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}
