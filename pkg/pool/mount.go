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
	"fmt"
	"os"
	"path/filepath"

	mount "k8s.io/mount-utils"

	"suse.com/hafence/pkg/logger"
)

var nfs_options = []string{ "soft", "timeo=133", "retrans=2147483647", "tcp", "noac" }

/*
 * Make sure a file based pool is mounted at its destination, mounting it
 * if necessary. SHARED pools are mounted by somebody else, we only check.
 * Block pools have nothing to mount.
 */
func Ensure_mounted(mounter mount.Interface, ref *Ref) error {
	var (
		err error
		mounts []mount.MountPoint
		path string
	)
	if (!ref.Type.Is_file_based()) {
		return nil
	}
	path = filepath.Clean(ref.Mount_dest)
	mounts, err = mounter.List()
	if (err != nil) {
		return err
	}
	for _, m := range mounts {
		if (m.Path != path) {
			continue
		}
		if (ref.Type == NFS && m.Device != ref.Source()) {
			return fmt.Errorf("unexpected mount at %s: device %s type %s", path, m.Device, m.Type)
		}
		return nil
	}
	if (ref.Type == SHARED) {
		return fmt.Errorf("shared mount point %s is not mounted", path)
	}
	err = os.MkdirAll(path, 0755)
	if (err != nil) {
		return fmt.Errorf("could not create mount directory %s: %w", path, err)
	}
	logger.Log("mounting %s on %s", ref.Source(), path)
	err = mounter.Mount(ref.Source(), path, "nfs", nfs_options)
	if (err != nil) {
		return fmt.Errorf("could not mount %s: %w", ref.Source(), err)
	}
	return nil
}

/* is the pool destination currently a mount point? */
func Is_mounted(mounter mount.Interface, ref *Ref) (bool, error) {
	var (
		err error
		mounts []mount.MountPoint
		path string = filepath.Clean(ref.Mount_dest)
	)
	mounts, err = mounter.List()
	if (err != nil) {
		return false, err
	}
	for _, m := range mounts {
		if (m.Path == path) {
			return true, nil
		}
	}
	return false, nil
}
