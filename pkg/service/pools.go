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

	"suse.com/hafence/pkg/httpx"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
)

func (s *Service) pool_list(w http.ResponseWriter, r *http.Request) {
	var err error
	_, err = httpx.Decode_request_body(r, nil)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	var list []pool.Ref = s.d.Pools.List()
	for i := range list {
		if (list[i].Source_auth != nil) {
			/* never hand out secrets */
			list[i].Source_auth = &pool.Auth{ User: list[i].Source_auth.User }
		}
	}
	httpx.Do_json(w, http.StatusOK, list)
}

func (s *Service) pool_add(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		ref pool.Ref
	)
	_, err = httpx.Decode_request_body(r, &ref)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	err = s.d.Pools.Add(ref)
	if (err != nil) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if (ref.Source_auth != nil) {
		ref.Source_auth = &pool.Auth{ User: ref.Source_auth.User }
	}
	httpx.Do_json(w, http.StatusCreated, ref)
}

func (s *Service) pool_remove(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		uuid string
	)
	_, err = httpx.Decode_request_body(r, nil)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	uuid = r.PathValue("uuid")
	if (uuid == "") {
		http.Error(w, "could not get uuid", http.StatusBadRequest)
		return
	}
	if _, ok := s.d.Pools.Get(uuid); !ok {
		http.Error(w, "unknown uuid", http.StatusNotFound)
		return
	}
	err = s.d.Pools.Remove(uuid)
	if (err != nil) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	httpx.Do_response(w, http.StatusNoContent, nil)
}

func (s *Service) pool_state(w http.ResponseWriter, r *http.Request) {
	var err error
	_, err = httpx.Decode_request_body(r, nil)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	st, ok := s.d.Fencing.State(r.PathValue("uuid"))
	if (!ok) {
		http.Error(w, "unknown uuid", http.StatusNotFound)
		return
	}
	httpx.Do_json(w, http.StatusOK, st)
}

func (s *Service) state_list(w http.ResponseWriter, r *http.Request) {
	var err error
	_, err = httpx.Decode_request_body(r, nil)
	if (err != nil) {
		logger.Log(err.Error())
		http.Error(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	httpx.Do_json(w, http.StatusOK, s.d.Fencing.States())
}
