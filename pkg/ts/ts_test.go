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
package ts

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestString(t *testing.T) {
	c := qt.New(t)
	c.Assert(String(0), qt.Equals, "")
	c.Assert(String(1700000000123), qt.Equals, "2023-11-14 22:13:20")
}

func TestMs(t *testing.T) {
	c := qt.New(t)
	c.Assert(Ms(1500), qt.Equals, 1500 * time.Millisecond)
	c.Assert(Now() / 1000 - Epoch() <= 1, qt.IsTrue)
}
