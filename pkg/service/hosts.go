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
package service

import (
	"net/http"

	"suse.com/hafence/pkg/checker"
	"suse.com/hafence/pkg/ha"
	"suse.com/hafence/pkg/httpx"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/reach"
)

/* optional body of a host check */
type Check_request struct {
	Addr string `json:"addr,omitempty"`        /* side channel address of the host */
	Volumes []string `json:"volumes,omitempty"` /* for the activity strategy */
}

func (s *Service) host_check(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		req Check_request
		inv ha.Investigator
		host string = r.PathValue("host")
		arg any
	)
	if (r.ContentLength != 0) {
		arg = &req
	}
	_, err = httpx.Decode_request_body(r, arg)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if (host == "") {
		http.Error(w, "could not get host", http.StatusBadRequest)
		return
	}
	inv = *s.d.Investigator
	if (len(req.Volumes) > 0) {
		var opt checker.Options = s.d.Options
		opt.Volumes = checker.Volume_list(req.Volumes)
		inv.Strategy, err = checker.From_config(s.d.Checker, s.d.Scripts, opt)
		if (err != nil) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	httpx.Do_json(w, http.StatusOK, inv.Investigate(r.Context(), host, req.Addr))
}

/* the side channel: which VMs run here. Peers use it to tell a dead agent from a dead host */
func (s *Service) side_channel(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		listing reach.Listing = reach.Listing{ Host: s.d.Host }
	)
	_, err = httpx.Decode_request_body(r, nil)
	if (err != nil) {
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	listing.Vms, err = s.d.Vms.Running_vms(r.Context())
	if (err != nil) {
		logger.Warn("side channel: %s", err.Error())
		http.Error(w, "hypervisor unavailable", http.StatusServiceUnavailable)
		return
	}
	httpx.Do_json(w, http.StatusOK, listing)
}
