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
package pool

import (
	"errors"
	"fmt"
	"path/filepath"

	g_uuid "github.com/google/uuid"

	. "suse.com/hafence/pkg/constants"
)

type Type string

const (
	NFS Type = "NFS"
	RBD Type = "RBD"
	SHARED Type = "SharedMountPoint" /* already mounted by someone else on every host */
)

/* Auth is only used by block pools (RBD): cephx user and secret */
type Auth struct {
	User string `json:"user"`
	Secret string `json:"secret,omitempty"`
}

/* a shared storage pool that needs fencing */
type Ref struct {
	Uuid string `json:"uuid"`
	Type Type `json:"type"`
	Source_host string `json:"source_host"`
	Source_path string `json:"source_path"`
	Source_auth *Auth `json:"source_auth,omitempty"`
	Mount_dest string `json:"mount_dest"`
}

func (t Type) Valid() bool {
	switch (t) {
	case NFS, RBD, SHARED:
		return true
	}
	return false
}

/* is this a pool where the marker is a file inside a local mount? */
func (t Type) Is_file_based() bool {
	return t == NFS || t == SHARED
}

func (ref *Ref) Validate() error {
	var err error
	if (ref.Uuid == "") {
		return errors.New("pool uuid is required")
	}
	_, err = g_uuid.Parse(ref.Uuid)
	if (err != nil) {
		return fmt.Errorf("invalid pool uuid %s: %w", ref.Uuid, err)
	}
	if (!ref.Type.Valid()) {
		return fmt.Errorf("pool %s: invalid type '%s'", ref.Uuid, ref.Type)
	}
	if (ref.Type != SHARED && ref.Source_host == "") {
		return fmt.Errorf("pool %s: source host is required", ref.Uuid)
	}
	if (ref.Source_path == "") {
		return fmt.Errorf("pool %s: source path is required", ref.Uuid)
	}
	if (ref.Type == RBD && ref.Source_auth == nil) {
		return fmt.Errorf("pool %s: rbd pools need source auth", ref.Uuid)
	}
	if (ref.Type.Is_file_based() && !filepath.IsAbs(ref.Mount_dest)) {
		return fmt.Errorf("pool %s: mount destination must be an absolute path", ref.Uuid)
	}
	return nil
}

/*
 * path of the liveness marker of host in this pool.
 * Only meaningful for file based pools, block pools keep the marker
 * in an object named the same way, but that is the helper's business.
 */
func (ref *Ref) Marker_path(host string) string {
	return filepath.Join(ref.Mount_dest, FENCE_DIR, MARKER_PREFIX + host)
}

/* source locator as passed to mount(8) */
func (ref *Ref) Source() string {
	if (ref.Source_host == "") {
		return ref.Source_path
	}
	return ref.Source_host + ":" + ref.Source_path
}

func (ref Ref) String() string {
	return fmt.Sprintf("%s(%s %s -> %s)", ref.Uuid, ref.Type, ref.Source(), ref.Mount_dest)
}

/*
 * the first three positional arguments of every helper: where the pool is.
 * Block pools have no mount, the cephx user goes in its place and the
 * secret goes through the environment (see Env), never on the command line.
 */
func (ref *Ref) Locator_args() []string {
	if (ref.Type == RBD && ref.Source_auth != nil) {
		return []string{ ref.Source_host, ref.Source_path, ref.Source_auth.User }
	}
	return []string{ ref.Source_host, ref.Source_path, ref.Mount_dest }
}

func (ref *Ref) Env() []string {
	if (ref.Type == RBD && ref.Source_auth != nil) {
		return []string{ RBD_SECRET_ENV + "=" + ref.Source_auth.Secret }
	}
	return nil
}
