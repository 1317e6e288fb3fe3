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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func Sync_dir(dirname string) error {
	dir, err := os.Open(dirname)
	if (err != nil) {
		return err
	}
	err = dir.Sync()
	if (err != nil) {
		dir.Close()
		return err
	}
	return dir.Close()
}

/*
 * Replace filename atomically with data: write a temporary file in the same
 * directory, sync, rename over the target and sync the directory.
 * Readers on other hosts (NFS) never see a partially written file.
 */
func Write_file_atomic(filename string, data []byte, perm os.FileMode) error {
	var (
		err error
		tmp *os.File
		tmpname, dirname string
	)
	dirname = filepath.Dir(filename)
	tmp, err = os.CreateTemp(dirname, fmt.Sprintf("%s.tmp-*", filepath.Base(filename)))
	if (err != nil) {
		return err
	}
	tmpname = tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpname)
	}()
	_, err = tmp.Write(data)
	if (err != nil) {
		return err
	}
	err = tmp.Sync()
	if (err != nil) {
		return err
	}
	err = tmp.Close()
	if (err != nil) {
		return err
	}
	err = os.Chmod(tmpname, perm)
	if (err != nil) {
		return err
	}
	err = os.Rename(tmpname, filename)
	if (err != nil) {
		return err
	}
	return Sync_dir(dirname)
}

func save_file(filename string, list []Ref) error {
	var (
		err error
		data []byte
	)
	err = os.MkdirAll(filepath.Dir(filename), 0700)
	if (err != nil) {
		return err
	}
	data, err = json.MarshalIndent(list, "", "  ")
	if (err != nil) {
		return err
	}
	/* may contain rbd secrets */
	return Write_file_atomic(filename, data, 0600)
}

/* a missing file is an empty list */
func load_file(filename string) ([]Ref, error) {
	var (
		err error
		data []byte
		list []Ref
	)
	data, err = os.ReadFile(filename)
	if (errors.Is(err, fs.ErrNotExist)) {
		return nil, nil
	}
	if (err != nil) {
		return nil, err
	}
	err = json.Unmarshal(data, &list)
	if (err != nil) {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return list, nil
}
