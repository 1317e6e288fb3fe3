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
	"encoding/xml"
	"errors"
)

const (
	FENCE_KEY = "hafence"
	FENCE_NS = "hafence-fence"
)

/*
 * Fence is recorded in the metadata of a domain right before it is
 * destroyed by fencing, so that the reason survives in the persistent
 * definition.
 *
 * GetMetadata loses the namespace along the way, so there is no default
 * namespace here, and the record gets a namespace of its own, since
 * setting an element replaces everything else in the same namespace.
 */
type Fence struct {
	XMLName xml.Name `xml:""`
	Pool string `xml:"pool"`
	Host string `xml:"host"`
	Action string `xml:"action"`
	Ts int64 `xml:"ts"`
}

func (f *Fence) To_xml(pool string, host string, action string, ts int64) (string, error) {
	var (
		err error
		xmlstr []byte
	)
	*f = Fence{
		XMLName: xml.Name{ Space: FENCE_NS, Local: "data-fence" },
		Pool: pool,
		Host: host,
		Action: action,
		Ts: ts,
	}
	xmlstr, err = xml.Marshal(f)
	if (err != nil) {
		return "", err
	}
	return string(xmlstr), nil
}

func (f *Fence) From_xml(xmlstr string) error {
	var err error
	*f = Fence{}
	err = xml.Unmarshal([]byte(xmlstr), f)
	if (err != nil) {
		return err
	}
	if (f.Action == "") {
		return errors.New("fence record without action")
	}
	return nil
}
