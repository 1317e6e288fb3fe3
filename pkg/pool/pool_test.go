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
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	mount "k8s.io/mount-utils"
)

const (
	uuid1 = "5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e01"
	uuid2 = "5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e02"
)

func nfs_ref(uuid string, dest string) Ref {
	return Ref{
		Uuid: uuid,
		Type: NFS,
		Source_host: "10.0.0.1",
		Source_path: "/export/primary",
		Mount_dest: dest,
	}
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	var ref Ref = nfs_ref(uuid1, "/mnt/p1")
	c.Assert(ref.Validate(), qt.IsNil)

	ref.Uuid = "not-a-uuid"
	c.Assert(ref.Validate(), qt.ErrorMatches, "invalid pool uuid.*")

	ref = nfs_ref(uuid1, "relative/path")
	c.Assert(ref.Validate(), qt.ErrorMatches, ".*absolute path")

	ref = nfs_ref(uuid1, "/mnt/p1")
	ref.Type = "ISCSI"
	c.Assert(ref.Validate(), qt.ErrorMatches, ".*invalid type.*")

	ref = Ref{ Uuid: uuid1, Type: RBD, Source_host: "mon1", Source_path: "rbdpool" }
	c.Assert(ref.Validate(), qt.ErrorMatches, ".*need source auth")
	ref.Source_auth = &Auth{ User: "admin", Secret: "s3cr3t" }
	c.Assert(ref.Validate(), qt.IsNil)
}

func TestMarkerPath(t *testing.T) {
	c := qt.New(t)
	var ref Ref = nfs_ref(uuid1, "/mnt/p1")
	c.Assert(ref.Marker_path("host-a"), qt.Equals, "/mnt/p1/KVMHA/hb-host-a")
	c.Assert(ref.Source(), qt.Equals, "10.0.0.1:/export/primary")
}

func TestRegistryAddRemove(t *testing.T) {
	c := qt.New(t)
	r := New_registry("")
	c.Assert(r.Add(nfs_ref(uuid2, "/mnt/p2")), qt.IsNil)
	c.Assert(r.Add(nfs_ref(uuid1, "/mnt/p1")), qt.IsNil)
	/* re-attach is a replace */
	c.Assert(r.Add(nfs_ref(uuid1, "/mnt/p1")), qt.IsNil)
	c.Assert(r.Len(), qt.Equals, 2)

	var list []Ref = r.List()
	c.Assert(list[0].Uuid, qt.Equals, uuid1)
	c.Assert(list[1].Uuid, qt.Equals, uuid2)

	err := r.Add(nfs_ref("5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e03", "/mnt/p1"))
	c.Assert(err, qt.ErrorMatches, ".*already used by pool.*")

	c.Assert(r.Remove(uuid1), qt.IsNil)
	_, ok := r.Get(uuid1)
	c.Assert(ok, qt.IsFalse)
	c.Assert(r.Remove(uuid1), qt.ErrorMatches, "no such pool.*")
}

func TestRegistryAdmission(t *testing.T) {
	c := qt.New(t)
	r := New_registry("")
	r.Set_admission(func(ref *Ref) error {
		if (ref.Mount_dest == "/mnt/refused") {
			return errors.New("refused")
		}
		return nil
	})
	c.Assert(r.Add(nfs_ref(uuid1, "/mnt/refused")), qt.ErrorMatches, "refused")
	c.Assert(r.Len(), qt.Equals, 0)
	c.Assert(r.Add(nfs_ref(uuid1, "/mnt/p1")), qt.IsNil)
	c.Assert(r.Len(), qt.Equals, 1)
}

func TestRegistryPersistence(t *testing.T) {
	c := qt.New(t)
	var filename string = filepath.Join(c.TempDir(), "state", "pools.json")
	r := New_registry(filename)
	c.Assert(r.Load(), qt.IsNil) /* nothing saved yet */
	c.Assert(r.Add(nfs_ref(uuid1, "/mnt/p1")), qt.IsNil)
	c.Assert(r.Add(nfs_ref(uuid2, "/mnt/p2")), qt.IsNil)
	c.Assert(r.Remove(uuid2), qt.IsNil)

	r2 := New_registry(filename)
	c.Assert(r2.Load(), qt.IsNil)
	c.Assert(r2.List(), qt.DeepEquals, []Ref{ nfs_ref(uuid1, "/mnt/p1") })
}

func TestEnsureMounted(t *testing.T) {
	c := qt.New(t)
	var dest string = filepath.Join(c.TempDir(), "p1")
	var ref Ref = nfs_ref(uuid1, dest)
	m := mount.NewFakeMounter([]mount.MountPoint{})

	c.Assert(Ensure_mounted(m, &ref), qt.IsNil)
	mounts, err := m.List()
	c.Assert(err, qt.IsNil)
	c.Assert(mounts, qt.HasLen, 1)
	c.Assert(mounts[0].Device, qt.Equals, "10.0.0.1:/export/primary")
	c.Assert(mounts[0].Type, qt.Equals, "nfs")

	/* already mounted, nothing to do */
	c.Assert(Ensure_mounted(m, &ref), qt.IsNil)
	mounts, _ = m.List()
	c.Assert(mounts, qt.HasLen, 1)
}

func TestEnsureMountedForeignDevice(t *testing.T) {
	c := qt.New(t)
	var ref Ref = nfs_ref(uuid1, "/mnt/p1")
	m := mount.NewFakeMounter([]mount.MountPoint{
		{ Device: "10.9.9.9:/other", Path: "/mnt/p1", Type: "nfs" },
	})
	c.Assert(Ensure_mounted(m, &ref), qt.ErrorMatches, "unexpected mount at /mnt/p1.*")
}

func TestEnsureMountedSharedNotMounted(t *testing.T) {
	c := qt.New(t)
	var ref Ref = Ref{ Uuid: uuid1, Type: SHARED, Source_path: "/shared", Mount_dest: "/shared" }
	m := mount.NewFakeMounter([]mount.MountPoint{})
	c.Assert(Ensure_mounted(m, &ref), qt.ErrorMatches, "shared mount point /shared is not mounted")
}

func TestLocatorArgs(t *testing.T) {
	c := qt.New(t)
	var ref Ref = nfs_ref(uuid1, "/mnt/p1")
	c.Assert(ref.Locator_args(), qt.DeepEquals, []string{ "10.0.0.1", "/export/primary", "/mnt/p1" })
	c.Assert(ref.Env(), qt.IsNil)

	ref = Ref{ Uuid: uuid2, Type: RBD, Source_host: "mon1", Source_path: "rbdpool",
		Source_auth: &Auth{ User: "admin", Secret: "s3cr3t" } }
	c.Assert(ref.Locator_args(), qt.DeepEquals, []string{ "mon1", "rbdpool", "admin" })
	c.Assert(ref.Env(), qt.DeepEquals, []string{ "HAFENCE_RBD_SECRET=s3cr3t" })
}

func TestIsMounted(t *testing.T) {
	c := qt.New(t)
	var ref Ref = nfs_ref(uuid1, "/mnt/p1/")
	m := mount.NewFakeMounter([]mount.MountPoint{ { Device: "x", Path: "/mnt/p1", Type: "nfs" } })
	ok, err := Is_mounted(m, &ref)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	ref.Mount_dest = "/mnt/p2"
	ok, _ = Is_mounted(m, &ref)
	c.Assert(ok, qt.IsFalse)
}
