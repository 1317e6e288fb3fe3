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
package serfcomm

import (
	"encoding/binary"
	"errors"

	"suse.com/hafence/pkg/checker"
)

const verdict_version = 1

/* the verdict of a peer about a failed member, broadcast to the cluster */
type Verdict_event struct {
	Reporter string
	Host string
	Outcome checker.Outcome
	Reachable bool
	Ts int64
}

var errShortBuffer = errors.New("buffer too small")

func put_string(buf []byte, order binary.ByteOrder, s string) (int, error) {
	if (len(s) > 0xffff) {
		return 0, errors.New("string too long")
	}
	if (len(buf) < 2 + len(s)) {
		return 0, errShortBuffer
	}
	order.PutUint16(buf, uint16(len(s)))
	copy(buf[2:], s)
	return 2 + len(s), nil
}

func get_string(buf []byte, order binary.ByteOrder) (string, int, error) {
	if (len(buf) < 2) {
		return "", 0, errShortBuffer
	}
	var n int = int(order.Uint16(buf))
	if (len(buf) < 2 + n) {
		return "", 0, errShortBuffer
	}
	return string(buf[2:2 + n]), 2 + n, nil
}

/*
 * layout: version u8, ts i64, outcome u8, reachable u8,
 * reporter and host as u16 length + bytes.
 */
func encode_verdict(buf []byte, order binary.ByteOrder, v *Verdict_event) (int, error) {
	var (
		offset int
		n int
		err error
	)
	if (len(buf) < 11) {
		return 0, errShortBuffer
	}
	buf[0] = verdict_version
	order.PutUint64(buf[1:], uint64(v.Ts))
	buf[9] = byte(v.Outcome)
	buf[10] = 0
	if (v.Reachable) {
		buf[10] = 1
	}
	offset = 11
	n, err = put_string(buf[offset:], order, v.Reporter)
	if (err != nil) {
		return offset, err
	}
	offset += n
	n, err = put_string(buf[offset:], order, v.Host)
	if (err != nil) {
		return offset, err
	}
	return offset + n, nil
}

func decode_verdict(buf []byte, order binary.ByteOrder, v *Verdict_event) (int, error) {
	var (
		offset int
		n int
		err error
	)
	if (len(buf) < 11) {
		return 0, errShortBuffer
	}
	if (buf[0] != verdict_version) {
		return 0, errors.New("unknown verdict version")
	}
	v.Ts = int64(order.Uint64(buf[1:]))
	v.Outcome = checker.Outcome(buf[9])
	if (v.Outcome > checker.DEAD) {
		return 9, errors.New("invalid outcome")
	}
	v.Reachable = buf[10] != 0
	offset = 11
	v.Reporter, n, err = get_string(buf[offset:], order)
	if (err != nil) {
		return offset, err
	}
	offset += n
	v.Host, n, err = get_string(buf[offset:], order)
	if (err != nil) {
		return offset, err
	}
	return offset + n, nil
}
