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

	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/httpx"
	"suse.com/hafence/pkg/logger"
)

func (s *Service) fencing_get(w http.ResponseWriter, r *http.Request) {
	var err error
	_, err = httpx.Decode_request_body(r, nil)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	httpx.Do_json(w, http.StatusOK, s.d.Fencing.Config())
}

/*
 * replace the fencing parameters, effective from the next cycle.
 * The heartbeat writer is built at startup, so the primitive is fixed.
 */
func (s *Service) fencing_set(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		cfg config.Fencing
	)
	_, err = httpx.Decode_request_body(r, &cfg)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if (cfg.Primitive != s.d.Fencing.Config().Primitive) {
		http.Error(w, "the heartbeat primitive cannot change at runtime", http.StatusUnprocessableEntity)
		return
	}
	err = s.d.Fencing.Configure(cfg)
	if (err != nil) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	logger.Log("fencing reconfigured: interval %ds, attempts %d, retry sleep %dms, write timeout %dms, max failures %d, action %s",
		cfg.Interval, cfg.Max_attempts, cfg.Retry_sleep, cfg.Write_timeout, cfg.Max_failures, cfg.Action)
	httpx.Do_json(w, http.StatusOK, s.d.Fencing.Config())
}
