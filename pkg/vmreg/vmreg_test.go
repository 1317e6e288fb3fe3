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
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/hashicorp/go-multierror"

	"suse.com/hafence/pkg/pool"
)

const domain_xml = `<domain type="kvm">
  <name>vm1</name>
  <devices>
    <disk type="file" device="disk">
      <source file="/mnt/p1/0b7c5f3e-aaaa.qcow2"/>
      <target dev="vda" bus="virtio"/>
    </disk>
    <disk type="file" device="disk">
      <source file="/mnt/p10/other.qcow2"/>
      <target dev="vdb" bus="virtio"/>
    </disk>
    <disk type="network" device="disk">
      <source protocol="rbd" name="rbdpool/image-1">
        <host name="mon1" port="6789"/>
      </source>
      <target dev="vdc" bus="virtio"/>
    </disk>
    <disk type="file" device="cdrom">
      <target dev="hdc" bus="ide"/>
    </disk>
  </devices>
</domain>`

var (
	nfs1 = pool.Ref{ Uuid: "5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e01", Type: pool.NFS, Source_host: "10.0.0.1", Source_path: "/export", Mount_dest: "/mnt/p1" }
	rbd1 = pool.Ref{ Uuid: "5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e02", Type: pool.RBD, Source_host: "mon1", Source_path: "rbdpool",
		Source_auth: &pool.Auth{ User: "admin", Secret: "k" } }
)

func TestXmlVolumes(t *testing.T) {
	c := qt.New(t)
	vols, err := Xml_volumes(domain_xml, nfs1)
	c.Assert(err, qt.IsNil)
	/* /mnt/p10 is not inside /mnt/p1 */
	c.Assert(vols, qt.DeepEquals, []string{ "0b7c5f3e-aaaa.qcow2" })

	vols, err = Xml_volumes(domain_xml, rbd1)
	c.Assert(err, qt.IsNil)
	c.Assert(vols, qt.DeepEquals, []string{ "image-1" })

	_, err = Xml_volumes("<domain", nfs1)
	c.Assert(err, qt.IsNotNil)
}

func TestSaveLoadDelete(t *testing.T) {
	c := qt.New(t)
	r := New(c.TempDir())
	c.Assert(r.Save("host-a", "vm1", domain_xml), qt.IsNil)
	xml, err := r.Load("host-a", "vm1")
	c.Assert(err, qt.IsNil)
	c.Assert(xml, qt.Equals, domain_xml)

	names, err := r.List("host-a")
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{ "vm1" })

	c.Assert(r.Delete("host-a", "vm1"), qt.IsNil)
	names, err = r.List("host-a")
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.HasLen, 0)

	names, err = r.List("host-unknown")
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.HasLen, 0)
}

func TestSyncAndVolumes(t *testing.T) {
	c := qt.New(t)
	r := New(c.TempDir())
	c.Assert(r.Save("host-b", "stale", domain_xml), qt.IsNil)
	c.Assert(r.Sync("host-b", map[string]string{ "vm1": domain_xml, "broken": "not xml" }), qt.IsNil)

	names, err := r.List("host-b")
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{ "broken", "vm1" })

	vols, err := r.Volumes(nfs1, "host-b")
	c.Assert(err, qt.IsNil)
	c.Assert(vols, qt.DeepEquals, []string{ "0b7c5f3e-aaaa.qcow2" })
}

func TestSyncCollectsErrors(t *testing.T) {
	c := qt.New(t)
	var dir string = c.TempDir()
	r := New(dir)
	/* host-c is a file, nothing can be stored under it */
	c.Assert(os.WriteFile(filepath.Join(dir, "host-c"), nil, 0644), qt.IsNil)

	err := r.Sync("host-c", map[string]string{ "vm1": domain_xml, "vm2": domain_xml })
	var merr *multierror.Error
	c.Assert(errors.As(err, &merr), qt.IsTrue)
	c.Assert(merr.Errors, qt.HasLen, 3)
	c.Assert(err, qt.ErrorMatches, "(?s).*save vm1.*")
}
