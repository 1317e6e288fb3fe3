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
	"sort"
	"sync"

	"suse.com/hafence/pkg/logger"
)

/*
 * Registry of the shared pools attached to this host.
 * It is the only list the fencing watchdog looks at; pools are added when
 * the host attaches them and removed when it detaches them.
 */
type Registry struct {
	m sync.RWMutex
	pools map[string]Ref
	filename string /* "" disables persistence */
	admit func(ref *Ref) error
}

/*
 * admit is called on every pool about to be added, after its own
 * validation; a pool it refuses is not added.
 */
func (r *Registry) Set_admission(admit func(ref *Ref) error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.admit = admit
}

func New_registry(filename string) *Registry {
	return &Registry{
		pools: make(map[string]Ref),
		filename: filename,
	}
}

/* add or replace a pool (attaching twice is not an error) */
func (r *Registry) Add(ref Ref) error {
	var err error
	err = ref.Validate()
	if (err != nil) {
		return err
	}
	r.m.Lock()
	defer r.m.Unlock()

	if (r.admit != nil) {
		err = r.admit(&ref)
		if (err != nil) {
			return err
		}
	}
	for uuid, other := range r.pools {
		if (uuid != ref.Uuid && ref.Mount_dest != "" && other.Mount_dest == ref.Mount_dest) {
			return fmt.Errorf("pool %s: mount destination %s already used by pool %s", ref.Uuid, ref.Mount_dest, uuid)
		}
	}
	old, replaced := r.pools[ref.Uuid]
	r.pools[ref.Uuid] = ref
	err = r.save()
	if (err != nil) {
		if (replaced) {
			r.pools[ref.Uuid] = old
		} else {
			delete(r.pools, ref.Uuid)
		}
		return err
	}
	logger.Log("pool added: %s", ref.String())
	return nil
}

func (r *Registry) Remove(uuid string) error {
	var err error
	r.m.Lock()
	defer r.m.Unlock()

	old, ok := r.pools[uuid]
	if (!ok) {
		return fmt.Errorf("no such pool %s", uuid)
	}
	delete(r.pools, uuid)
	err = r.save()
	if (err != nil) {
		r.pools[uuid] = old
		return err
	}
	logger.Log("pool removed: %s", uuid)
	return nil
}

func (r *Registry) Get(uuid string) (Ref, bool) {
	r.m.RLock()
	defer r.m.RUnlock()
	ref, ok := r.pools[uuid]
	return ref, ok
}

/* snapshot of all pools, sorted by uuid */
func (r *Registry) List() []Ref {
	r.m.RLock()
	defer r.m.RUnlock()
	var list []Ref = make([]Ref, 0, len(r.pools))
	for _, ref := range r.pools {
		list = append(list, ref)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Uuid < list[j].Uuid })
	return list
}

func (r *Registry) Len() int {
	r.m.RLock()
	defer r.m.RUnlock()
	return len(r.pools)
}

/* load the persisted pools, if any, replacing the current content */
func (r *Registry) Load() error {
	var (
		err error
		list []Ref
	)
	if (r.filename == "") {
		return nil
	}
	list, err = load_file(r.filename)
	if (err != nil) {
		return err
	}
	r.m.Lock()
	defer r.m.Unlock()
	r.pools = make(map[string]Ref)
	for _, ref := range list {
		err = ref.Validate()
		if (err != nil) {
			logger.Warn("ignoring persisted pool: %s", err.Error())
			continue
		}
		r.pools[ref.Uuid] = ref
	}
	logger.Log("loaded %d pools from %s", len(r.pools), r.filename)
	return nil
}

/* called under lock */
func (r *Registry) save() error {
	if (r.filename == "") {
		return nil
	}
	var list []Ref = make([]Ref, 0, len(r.pools))
	for _, ref := range r.pools {
		list = append(list, ref)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Uuid < list[j].Uuid })
	return save_file(r.filename, list)
}
