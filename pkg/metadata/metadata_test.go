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
package metadata

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestFenceRecord(t *testing.T) {
	c := qt.New(t)
	var f Fence
	s, err := f.To_xml("5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e01", "host-a", "DESTROYVMS", 1700000000000)
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Contains, `<data-fence xmlns="hafence-fence">`)

	var g Fence
	c.Assert(g.From_xml(s), qt.IsNil)
	c.Assert(g.Pool, qt.Equals, f.Pool)
	c.Assert(g.Host, qt.Equals, "host-a")
	c.Assert(g.Ts, qt.Equals, int64(1700000000000))

	c.Assert(g.From_xml("<data-fence><pool>x</pool></data-fence>"), qt.ErrorMatches, "fence record without action")
}

func TestFenceRecordDecodeResets(t *testing.T) {
	c := qt.New(t)
	var f Fence
	s, err := f.To_xml("5b2f0cbc-6a3e-4f43-a2a6-8d7c1a3f0e01", "host-a", "HARDRESET", 1)
	c.Assert(err, qt.IsNil)
	c.Assert(f.From_xml(s), qt.IsNil)

	/* nothing of the previous record may survive a decode */
	c.Assert(f.From_xml("<data-fence><host>host-b</host><action>DESTROYVMS</action></data-fence>"), qt.IsNil)
	c.Assert(f.Pool, qt.Equals, "")
	c.Assert(f.Host, qt.Equals, "host-b")
	c.Assert(f.Ts, qt.Equals, int64(0))
}
