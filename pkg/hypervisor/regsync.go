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
	"time"

	"libvirt.org/go/libvirt"

	"suse.com/hafence/pkg/logger"
)

/*
 * Regularly copy the definitions of the domains of this host into the
 * shared vm registry, so that peers can find the volumes we use.
 */
func (hv *Hypervisor) Vmreg_loop(ctx context.Context, seconds int) {
	var (
		err error
		ticker *time.Ticker
	)
	if (hv.reg == nil) {
		return
	}
	logger.Debug("vmreg_loop starting...")
	defer logger.Debug("vmreg_loop exit")
	ticker = time.NewTicker(time.Duration(seconds) * time.Second)
	defer ticker.Stop()

	for {
		err = hv.sync_vmreg()
		if (err != nil) {
			var libvirt_err libvirt.Error
			if (errors.As(err, &libvirt_err) && libvirt_err.Level >= libvirt.ERR_ERROR) {
				logger.Warn("vmreg_loop: libvirt: %s", libvirt_err.Message)
			} else {
				logger.Warn("vmreg_loop: %s", err.Error())
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (hv *Hypervisor) sync_vmreg() error {
	var (
		err error
		doms []Domain
		xmls map[string]string = make(map[string]string)
	)
	doms, err = hv.Domains(false)
	if (err != nil) {
		return err
	}
	for _, d := range doms {
		xmls[d.Name] = d.Xml
	}
	return hv.reg.Sync(hv.host, xmls)
}
