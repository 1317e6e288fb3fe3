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
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"suse.com/hafence/pkg/logger"
)

/*
 * Runner runs a privileged helper and returns its combined output.
 * Every invocation is bounded by timeout; a timeout is an error.
 */
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, env []string, path string, args ...string) (string, error)
}

/* adapter to use an ordinary function as a Runner */
type Runner_func func(ctx context.Context, timeout time.Duration, env []string, path string, args ...string) (string, error)

func (f Runner_func) Run(ctx context.Context, timeout time.Duration, env []string, path string, args ...string) (string, error) {
	return f(ctx, timeout, env, path, args...)
}

type Exec struct{}

var ErrTimeout = errors.New("timed out")

func (Exec) Run(ctx context.Context, timeout time.Duration, env []string, path string, args ...string) (string, error) {
	var (
		err error
		cmd *exec.Cmd
		output []byte
		cancel context.CancelFunc
	)
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("%s %s", path, strings.Join(args, " "))
	cmd = exec.CommandContext(ctx, path, args...)
	if (len(env) > 0) {
		cmd.Env = append(os.Environ(), env...)
	}
	/* do not wait forever for grandchildren holding the pipes */
	cmd.WaitDelay = time.Second
	output, err = cmd.CombinedOutput()
	if (ctx.Err() == context.DeadlineExceeded) {
		return string(output), fmt.Errorf("%s %w after %s", path, ErrTimeout, timeout)
	}
	if (err != nil) {
		return string(output), fmt.Errorf("%s: %w", path, err)
	}
	return string(output), nil
}

/* the helper exists and is an executable regular file */
func Check_executable(path string) error {
	var (
		err error
		fi os.FileInfo
	)
	fi, err = os.Stat(path)
	if (err != nil) {
		return err
	}
	if (!fi.Mode().IsRegular()) {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if (fi.Mode().Perm() & 0111 == 0) {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
