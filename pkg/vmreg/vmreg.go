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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
)

/*
 * Registry of the domain XMLs of every host, kept in shared storage
 * as <dir>/<host>/<vm>.xml, so that peers can tell which volumes
 * a failed host was using.
 */
type Registry struct {
	Dir string
}

func New(dir string) *Registry {
	return &Registry{ Dir: dir }
}

/* get the path of the xml file registered for this VM */
func (r *Registry) reg_file(host string, vm string) string {
	return filepath.Join(r.Dir, host, vm + ".xml")
}

func (r *Registry) Load(host string, vm string) (string, error) {
	var (
		err error
		data []byte
	)
	data, err = os.ReadFile(r.reg_file(host, vm))
	if (err != nil) {
		return "", err
	}
	return string(data), nil
}

/*
 * we split into subdirs to avoid bottlenecks with a single directory
 * containing a large number of files in NFS.
 * Preexisting files are replaced atomically, to avoid corruption.
 */
func (r *Registry) Save(host string, vm string, xml string) error {
	var (
		err error
		filename string = r.reg_file(host, vm)
	)
	err = os.MkdirAll(filepath.Dir(filename), 0750)
	if (err != nil) {
		return err
	}
	return pool.Write_file_atomic(filename, []byte(xml), 0640)
}

func (r *Registry) Delete(host string, vm string) error {
	var (
		err error
		filename string = r.reg_file(host, vm)
	)
	err = os.Remove(filename)
	if (err != nil) {
		return err
	}
	return pool.Sync_dir(filepath.Dir(filename))
}

/* names of the VMs registered for host, sorted */
func (r *Registry) List(host string) ([]string, error) {
	var (
		err error
		entries []os.DirEntry
		names []string
	)
	entries, err = os.ReadDir(filepath.Join(r.Dir, host))
	if (errors.Is(err, os.ErrNotExist)) {
		return nil, nil
	}
	if (err != nil) {
		return nil, err
	}
	for _, e := range entries {
		if (e.IsDir() || !strings.HasSuffix(e.Name(), ".xml")) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".xml"))
	}
	sort.Strings(names)
	return names, nil
}

/*
 * make the registry of host reflect domains (name to xml):
 * save what changed, delete what is gone.
 */
func (r *Registry) Sync(host string, domains map[string]string) error {
	var (
		err error
		result *multierror.Error
		names []string
		old string
	)
	for name, xml := range domains {
		old, err = r.Load(host, name)
		if (err == nil && old == xml) {
			continue
		}
		err = r.Save(host, name, xml)
		if (err != nil) {
			result = multierror.Append(result, fmt.Errorf("save %s: %w", name, err))
		}
	}
	names, err = r.List(host)
	if (err != nil) {
		result = multierror.Append(result, err)
		return result.ErrorOrNil()
	}
	for _, name := range names {
		if _, ok := domains[name]; ok {
			continue
		}
		logger.Debug("vmreg: %s/%s is gone", host, name)
		err = r.Delete(host, name)
		if (err != nil && !errors.Is(err, os.ErrNotExist)) {
			result = multierror.Append(result, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	return result.ErrorOrNil()
}
