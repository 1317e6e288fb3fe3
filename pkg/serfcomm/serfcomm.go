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
	"context"
	"encoding/binary"
	"net"
	"sync"

	"github.com/hashicorp/serf/client"

	"suse.com/hafence/pkg/checker"
	"suse.com/hafence/pkg/ha"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/ts"
)

const (
	label_verdict string = "FV"
	tag_host string = "hafence-host"
	max_message_size uint = 512
)

type investigate_func func(ctx context.Context, host string, addr string) ha.Verdict

var serf = struct {
	c *client.RPCClient
	host string
	enc_buffer [max_message_size]byte
	enc_mux sync.Mutex
	channel chan map[string]interface{}
	stream client.StreamHandle
	investigate investigate_func
	send func(name string, payload []byte) error
	wg sync.WaitGroup
}{}

func send_verdict(v *Verdict_event) error {
	serf.enc_mux.Lock()
	defer serf.enc_mux.Unlock()
	var (
		eventsize int
		err error
	)
	eventsize, err = encode_verdict(serf.enc_buffer[:], binary.LittleEndian, v)
	if (err != nil) {
		return err
	}
	logger.Debug("send_verdict payload len=%d", eventsize)
	return serf.send(label_verdict, serf.enc_buffer[:eventsize])
}

/* host identity and address of a member record of the event stream */
func member_info(m interface{}) (string, string, bool) {
	var (
		member map[interface{}]interface{}
		tags map[interface{}]interface{}
		host string
		addr string
		ok bool
	)
	member, ok = m.(map[interface{}]interface{})
	if (!ok) {
		return "", "", false
	}
	tags, ok = member["Tags"].(map[interface{}]interface{})
	if (!ok) {
		return "", "", false
	}
	host, ok = tags[tag_host].(string)
	if (!ok || host == "") {
		return "", "", false
	}
	switch a := member["Addr"].(type) {
	case []byte:
		if (len(a) == net.IPv4len || len(a) == net.IPv6len) {
			addr = net.IP(a).String()
		}
	case string:
		addr = a
	}
	return host, addr, true
}

/* a peer failed: find out if it is dead and tell everybody */
func investigate_member(ctx context.Context, host string, addr string) {
	defer serf.wg.Done()
	var (
		err error
		v ha.Verdict
	)
	v = serf.investigate(ctx, host, addr)
	err = send_verdict(&Verdict_event{
		Reporter: serf.host,
		Host: host,
		Outcome: v.Outcome,
		Reachable: v.Reachable,
		Ts: ts.Now(),
	})
	if (err != nil) {
		logger.Warn("could not broadcast verdict on %s: %s", host, err.Error())
	}
}

func handle_event(ctx context.Context, e map[string]interface{}) {
	var (
		err error
		event string
		ok bool
	)
	event, ok = e["Event"].(string)
	if (!ok) {
		return
	}
	switch (event) {
	case "member-failed":
		members, _ := e["Members"].([]interface{})
		for _, m := range members {
			host, addr, ok := member_info(m)
			if (!ok) {
				logger.Log("failed to get %s tag", tag_host)
				continue
			}
			if (host == serf.host) {
				continue
			}
			logger.Log("Host %s (%s) FAILED, investigating", host, addr)
			serf.wg.Add(1)
			go investigate_member(ctx, host, addr)
		}
	case "member-leave":
		logger.Log("member left the cluster")
	case "user":
		name, _ := e["Name"].(string)
		payload, _ := e["Payload"].([]byte)
		switch (name) {
		case label_verdict:
			var (
				v Verdict_event
				size int
			)
			size, err = decode_verdict(payload, binary.LittleEndian, &v)
			if (err != nil) {
				logger.Log("Decode %s: ERR '%s' at offset %d", name, err.Error(), size)
				return
			}
			if (v.Outcome == checker.DEAD) {
				logger.Alert("%s reports host %s DEAD (reachable %t) at %s", v.Reporter, v.Host, v.Reachable, ts.String(v.Ts))
			} else {
				logger.Log("%s reports host %s %s at %s", v.Reporter, v.Host, v.Outcome, ts.String(v.Ts))
			}
		default:
			logger.Log("[UNKNOWN-EVENT] %s %s", name, payload)
		}
	}
}

func recv_serf_events(ctx context.Context, shutdown_ch chan<- struct{}) {
	logger.Log("RecvSerfEvents loop start...")
	for e := range serf.channel {
		handle_event(ctx, e)
	}
	serf.wg.Wait()
	logger.Log("RecvSerfEvents loop exit!")
	close(shutdown_ch)
}

func Init(rpc_addr string, host string, inv *ha.Investigator) error {
	var err error
	serf.c, err = client.NewRPCClient(rpc_addr)
	if (err != nil) {
		return err
	}
	serf.host = host
	serf.investigate = inv.Investigate
	serf.send = func(name string, payload []byte) error {
		return serf.c.UserEvent(name, payload, false)
	}
	err = serf.c.UpdateTags(map[string]string{ tag_host: host }, []string{})
	if (err != nil) {
		return err
	}
	serf.channel = make(chan map[string]interface{}, 64)
	serf.stream, err = serf.c.Stream("*", serf.channel)
	if (err != nil) {
		return err
	}
	return nil
}

func Start_listening(ctx context.Context, serf_shutdown_ch chan struct{}) {
	go recv_serf_events(ctx, serf_shutdown_ch)
}

func Shutdown() {
	var err error
	logger.Log("serfcomm is shutting down...")
	err = serf.c.Stop(serf.stream)
	if (err != nil) {
		logger.Log(err.Error())
	}
	err = serf.c.Close()
	if (err != nil) {
		logger.Log(err.Error())
	}
	logger.Log("serfcomm shutdown complete.")
}
