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
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"suse.com/hafence/pkg/checker"
	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/fence"
	"suse.com/hafence/pkg/ha"
	"suse.com/hafence/pkg/httpx"
	"suse.com/hafence/pkg/pool"
)

/* fencing state and parameters as exposed to the api */
type Fencing_states interface {
	State(uuid string) (fence.State, bool)
	States() []fence.State
	Config() config.Fencing
	Configure(cfg config.Fencing) error
}

/* the running VMs of this host, for the side channel */
type Vm_lister interface {
	Running_vms(ctx context.Context) ([]string, error)
}

type Deps struct {
	Host string
	Pools *pool.Registry
	Fencing Fencing_states
	Investigator *ha.Investigator
	Vms Vm_lister
	Gatherer prometheus.Gatherer   /* may be nil */

	/* to build a strategy for checks naming their own volumes */
	Checker config.Checker
	Scripts config.Scripts
	Options checker.Options
}

type Service struct {
	servemux *http.ServeMux
	server http.Server
	d Deps
}

func New(addr string, d Deps) *Service {
	var s *Service = &Service{ d: d }
	s.servemux = http.NewServeMux()
	s.servemux.HandleFunc("GET /{$}", s.side_channel)
	s.servemux.HandleFunc("GET /pools", s.pool_list)
	s.servemux.HandleFunc("POST /pools", s.pool_add)
	s.servemux.HandleFunc("DELETE /pools/{uuid}", s.pool_remove)
	s.servemux.HandleFunc("GET /pools/{uuid}/state", s.pool_state)
	s.servemux.HandleFunc("GET /states", s.state_list)
	s.servemux.HandleFunc("GET /fencing", s.fencing_get)
	s.servemux.HandleFunc("PUT /fencing", s.fencing_set)
	s.servemux.HandleFunc("POST /hosts/{host}/check", s.host_check)
	if (d.Gatherer != nil) {
		s.servemux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	s.server = http.Server{
		Addr: addr,
		Handler: s.servemux,
		ReadHeaderTimeout: httpx.SERVER_TIMEOUT * time.Second,
	}
	return s
}

func (s *Service) Shutdown(ctx context.Context) error {
	var err error
	err = s.server.Shutdown(ctx)
	/* Shutdown the client too (used for the side channel) */
	httpx.Shutdown()
	return err
}

func (s *Service) Close() error {
	return s.server.Close()
}

/* listen synchronously, so that a busy port is reported at startup */
func (s *Service) Start_listening() (<-chan error, error) {
	var (
		err error
		l net.Listener
	)
	l, err = net.Listen("tcp", s.server.Addr)
	if (err != nil) {
		return nil, err
	}
	err_ch := make(chan error, 1)
	go func() {
		var err error = s.server.Serve(l)
		if (err != nil && !errors.Is(err, http.ErrServerClosed)) {
			err_ch <- err
			return
		}
		close(err_ch)
	}()
	return err_ch, nil
}
