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
package vmreg

import (
	"path"
	"path/filepath"
	"strings"

	"libvirt.org/go/libvirtxml"

	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
)

/* under reports whether p is inside dir, comparing whole path elements */
func under(p string, dir string) bool {
	if (p == "" || dir == "") {
		return false
	}
	p = filepath.Clean(p)
	dir = filepath.Clean(dir)
	return dir != "/" && strings.HasPrefix(p, dir + "/")
}

/*
 * the volumes of a domain stored in the pool ref.
 * For file based pools that is the file name of each disk under the
 * mount destination, for rbd pools the image name in the rbd pool.
 */
func Disk_volumes(dom *libvirtxml.Domain, ref pool.Ref) []string {
	var vols []string
	if (dom == nil || dom.Devices == nil) {
		return nil
	}
	for _, disk := range dom.Devices.Disks {
		var src *libvirtxml.DomainDiskSource = disk.Source
		if (src == nil) {
			continue
		}
		switch {
		case src.File != nil && ref.Type.Is_file_based():
			if (under(src.File.File, ref.Mount_dest)) {
				vols = append(vols, filepath.Base(src.File.File))
			}
		case src.Block != nil && ref.Type.Is_file_based():
			if (under(src.Block.Dev, ref.Mount_dest)) {
				vols = append(vols, filepath.Base(src.Block.Dev))
			}
		case src.Network != nil && ref.Type == pool.RBD:
			if (src.Network.Protocol == "rbd" && path.Dir(src.Network.Name) == ref.Source_path) {
				vols = append(vols, path.Base(src.Network.Name))
			}
		}
	}
	return vols
}

/* parse a domain xml and return its volumes in pool ref */
func Xml_volumes(xml string, ref pool.Ref) ([]string, error) {
	var (
		err error
		dom libvirtxml.Domain
	)
	err = dom.Unmarshal(xml)
	if (err != nil) {
		return nil, err
	}
	return Disk_volumes(&dom, ref), nil
}

/*
 * all volumes in pool ref of the VMs registered for host.
 * A VM whose xml cannot be read is skipped with a warning.
 */
func (r *Registry) Volumes(ref pool.Ref, host string) ([]string, error) {
	var (
		err error
		names []string
		vols []string
	)
	names, err = r.List(host)
	if (err != nil) {
		return nil, err
	}
	for _, name := range names {
		var (
			xml string
			v []string
		)
		xml, err = r.Load(host, name)
		if (err == nil) {
			v, err = Xml_volumes(xml, ref)
		}
		if (err != nil) {
			logger.Warn("vmreg: skipping %s/%s: %s", host, name, err.Error())
			continue
		}
		vols = append(vols, v...)
	}
	return vols, nil
}
