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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
	"libvirt.org/go/libvirt"
	"libvirt.org/go/libvirtxml"

	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/metadata"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/ts"
	"suse.com/hafence/pkg/vmreg"
)

/* the domains having at least one disk in pool ref */
func Select_domains(doms []Domain, ref pool.Ref) []Domain {
	var victims []Domain
	for _, d := range doms {
		var (
			err error
			xd libvirtxml.Domain
		)
		err = xd.Unmarshal(d.Xml)
		if (err != nil) {
			logger.Warn("%s: unreadable domain xml: %s", d.Name, err.Error())
			continue
		}
		if (len(vmreg.Disk_volumes(&xd, ref)) > 0) {
			victims = append(victims, d)
		}
	}
	return victims
}

/* when libvirtd does not answer, fall back to what we registered */
func (hv *Hypervisor) registered_domains() ([]Domain, error) {
	var (
		err error
		names []string
		list []Domain
	)
	if (hv.reg == nil) {
		return nil, errors.New("no vm registry")
	}
	names, err = hv.reg.List(hv.host)
	if (err != nil) {
		return nil, err
	}
	for _, name := range names {
		var xml string
		xml, err = hv.reg.Load(hv.host, name)
		if (err != nil) {
			continue
		}
		list = append(list, Domain{ Name: name, Active: true, Xml: xml })
	}
	return list, nil
}

func (hv *Hypervisor) running_or_registered() ([]Domain, error) {
	doms, err := hv.Domains(true)
	if (err == nil) {
		return doms, nil
	}
	logger.Warn("cannot list domains from libvirt: %s, using the vm registry", err.Error())
	return hv.registered_domains()
}

/* destroy the running VMs using storage in pool ref */
func (hv *Hypervisor) Destroy_pool_workloads(ref pool.Ref) error {
	var (
		err error
		doms []Domain
		result *multierror.Error
	)
	doms, err = hv.running_or_registered()
	if (err != nil) {
		return err
	}
	for _, d := range Select_domains(doms, ref) {
		logger.Alert("destroying %s, it has storage in pool %s", d.Name, ref.Uuid)
		err = hv.destroy(d.Name, ref.Uuid, "DESTROYVMS")
		if (err != nil) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

/* destroy every VM, then reboot the host without a clean shutdown */
func (hv *Hypervisor) Hard_reset() error {
	var (
		err error
		doms []Domain
	)
	doms, err = hv.running_or_registered()
	if (err != nil) {
		logger.Warn("hard reset: %s", err.Error())
	}
	for _, d := range doms {
		err = hv.destroy(d.Name, "", "HARDRESET")
		if (err != nil) {
			logger.Warn("hard reset: %s", err.Error())
		}
	}
	unix.Sync()
	logger.Alert("hard reset: rebooting host %s now", hv.host)
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}

func (hv *Hypervisor) Stop_agent() error {
	var (
		err error
		output string
	)
	output, err = hv.runner.Run(context.Background(), systemctl_timeout, nil, "systemctl", "stop", hv.agent_unit)
	if (err != nil) {
		return fmt.Errorf("systemctl stop %s: %w: %s", hv.agent_unit, err, strings.TrimSpace(output))
	}
	return nil
}

/*
 * destroy a domain through libvirt, recording why in its metadata.
 * If libvirt cannot do it, kill the qemu process directly.
 */
func (hv *Hypervisor) destroy(name string, pool_uuid string, action string) error {
	var (
		err error
		conn *libvirt.Connect
		domain *libvirt.Domain
		meta metadata.Fence
		prev metadata.Fence
		xmlstr string
	)
	conn, err = libvirt.NewConnect(libvirt_uri)
	if (err != nil) {
		return hv.kill_domain_process(name, err)
	}
	defer conn.Close()
	domain, err = conn.LookupDomainByName(name)
	if (err != nil) {
		return hv.kill_domain_process(name, err)
	}
	defer domain.Free()

	/* a domain fenced before and started again since */
	xmlstr, err = domain.GetMetadata(libvirt.DOMAIN_METADATA_ELEMENT, metadata.FENCE_NS, libvirt.DOMAIN_AFFECT_CONFIG)
	if (err == nil && prev.From_xml(xmlstr) == nil) {
		logger.Log("%s: previously fenced by %s for pool %s (%s) at %s", name, prev.Host, prev.Pool, prev.Action, ts.String(prev.Ts))
	}
	xmlstr, err = meta.To_xml(pool_uuid, hv.host, action, ts.Now())
	if (err == nil) {
		err = domain.SetMetadata(libvirt.DOMAIN_METADATA_ELEMENT, xmlstr,
			metadata.FENCE_KEY, metadata.FENCE_NS, libvirt.DOMAIN_AFFECT_CONFIG)
	}
	if (err != nil) {
		logger.Debug("%s: could not record fencing metadata: %s", name, err.Error())
	}
	err = domain.DestroyFlags(0)
	if (err != nil) {
		return hv.kill_domain_process(name, err)
	}
	logger.Log("%s destroyed", name)
	return nil
}

/* pid of the qemu process of a domain, from the libvirt pid file */
func read_pid(filename string) (int, error) {
	var (
		err error
		data []byte
		pid int
	)
	data, err = os.ReadFile(filename)
	if (err != nil) {
		return 0, err
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if (err != nil) {
		return 0, fmt.Errorf("%s: invalid pid: %w", filename, err)
	}
	if (pid <= 1) {
		return 0, fmt.Errorf("%s: invalid pid %d", filename, pid)
	}
	return pid, nil
}

func (hv *Hypervisor) kill_domain_process(name string, cause error) error {
	var (
		err error
		pid int
	)
	logger.Warn("%s: libvirt destroy failed (%s), killing the process", name, cause.Error())
	pid, err = read_pid(filepath.Join(hv.run_dir, name + ".pid"))
	if (err != nil) {
		return fmt.Errorf("destroy %s: %v; %w", name, cause, err)
	}
	err = unix.Kill(pid, unix.SIGKILL)
	if (err != nil && err != unix.ESRCH) {
		return fmt.Errorf("destroy %s: kill %d: %w", name, pid, err)
	}
	logger.Log("%s: killed qemu process %d", name, pid)
	return nil
}
