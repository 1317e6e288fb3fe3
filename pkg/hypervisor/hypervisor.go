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
package hypervisor

import (
	"context"
	"sync"
	"time"

	"libvirt.org/go/libvirt"
	"libvirt.org/go/libvirtxml"

	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/script"
	"suse.com/hafence/pkg/vmreg"
)

const (
	libvirt_uri = "qemu:///system"
	qemu_run_dir = "/run/libvirt/qemu"
	systemctl_timeout = 30 * time.Second
)

/*
 * Hypervisor is the local libvirt, as seen by fencing:
 * it lists and destroys domains, resets the host and stops the agent.
 */
type Hypervisor struct {
	m sync.RWMutex
	host string               /* host identity used in the vm registry */
	agent_unit string
	reg *vmreg.Registry       /* may be nil */
	runner script.Runner
	run_dir string
}

func New(host string, agent_unit string, reg *vmreg.Registry) *Hypervisor {
	return &Hypervisor{
		host: host,
		agent_unit: agent_unit,
		reg: reg,
		runner: script.Exec{},
		run_dir: qemu_run_dir,
	}
}

/* connect once to check libvirt is there, and fetch the host uuid */
func (hv *Hypervisor) Connect() error {
	var (
		err error
		conn *libvirt.Connect
		data string
		caps libvirtxml.Caps
	)
	conn, err = libvirt.NewConnect(libvirt_uri)
	if (err != nil) {
		return err
	}
	defer conn.Close()
	data, err = conn.GetCapabilities()
	if (err != nil) {
		return err
	}
	err = caps.Unmarshal(data)
	if (err != nil) {
		return err
	}
	hv.m.Lock()
	if (hv.host == "") {
		hv.host = caps.Host.UUID
	}
	hv.m.Unlock()
	logger.Log("connected to %s, host uuid %s", libvirt_uri, caps.Host.UUID)
	return nil
}

/* the host identity, the libvirt uuid unless configured */
func (hv *Hypervisor) Host() string {
	hv.m.RLock()
	defer hv.m.RUnlock()
	return hv.host
}

/* a domain as needed to decide on fencing it */
type Domain struct {
	Name string
	Uuid string
	Active bool
	Xml string
}

func freeDomains(doms []libvirt.Domain) {
	for _, d := range doms {
		d.Free()
	}
}

/* list domains; active only, or all persistent ones */
func (hv *Hypervisor) Domains(active bool) ([]Domain, error) {
	var (
		err error
		conn *libvirt.Connect
		doms []libvirt.Domain
		flags libvirt.ConnectListAllDomainsFlags = libvirt.CONNECT_LIST_DOMAINS_PERSISTENT
		list []Domain
	)
	if (active) {
		flags = libvirt.CONNECT_LIST_DOMAINS_ACTIVE
	}
	conn, err = libvirt.NewConnect(libvirt_uri)
	if (err != nil) {
		return nil, err
	}
	defer conn.Close()
	doms, err = conn.ListAllDomains(flags)
	if (err != nil) {
		return nil, err
	}
	defer freeDomains(doms)

	for i := range doms {
		var dom Domain
		dom.Name, err = doms[i].GetName()
		if (err != nil) {
			logger.Log("could not get domain name: %s", err.Error())
			continue
		}
		dom.Uuid, err = doms[i].GetUUIDString()
		if (err != nil) {
			logger.Log("%s: could not get uuid: %s", dom.Name, err.Error())
			continue
		}
		dom.Active, err = doms[i].IsActive()
		if (err != nil) {
			logger.Log("%s: could not get state: %s", dom.Name, err.Error())
			continue
		}
		dom.Xml, err = doms[i].GetXMLDesc(0)
		if (err != nil) {
			logger.Log("%s: could not get xml: %s", dom.Name, err.Error())
			continue
		}
		list = append(list, dom)
	}
	return list, nil
}

/* names of the running domains, for the side channel */
func (hv *Hypervisor) Running_vms(ctx context.Context) ([]string, error) {
	var (
		err error
		doms []Domain
		names []string = []string{}
	)
	doms, err = hv.Domains(true)
	if (err != nil) {
		return nil, err
	}
	for _, d := range doms {
		names = append(names, d.Name)
	}
	return names, nil
}
