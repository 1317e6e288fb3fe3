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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"k8s.io/mount-utils"

	"suse.com/hafence/pkg/checker"
	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/fence"
	"suse.com/hafence/pkg/ha"
	"suse.com/hafence/pkg/heartbeat"
	"suse.com/hafence/pkg/hypervisor"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/reach"
	"suse.com/hafence/pkg/script"
	"suse.com/hafence/pkg/serfcomm"
	"suse.com/hafence/pkg/service"
	"suse.com/hafence/pkg/ts"
	"suse.com/hafence/pkg/vmreg"
	. "suse.com/hafence/pkg/constants"
)

var version string = "unknown"

var opts struct {
	config_file string
	debug bool
}

var cmd = &cobra.Command{
	Use:   "hafenced",
	Short: "storage fencing agent for KVM hosts",
	Long:  "hafenced writes liveness markers to the shared storage pools of this host and fences it when they can no longer be written",
	Args:  cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cmd.Flags().StringVarP(&opts.config_file, "config", "c", CONFIG_FILE, "configuration file")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "enable debug logging")
}

func main() {
	var err error
	err = cmd.Execute()
	if (err != nil) {
		os.Exit(1)
	}
	os.Exit(0)
}

/* the heartbeat primitive, with its own view of the mounts */
func new_writer(cfg *config.Config, mounter mount.Interface) heartbeat.Writer {
	if (cfg.Fencing.Primitive == config.PRIMITIVE_NATIVE) {
		return &heartbeat.File_writer{
			Mounter: mounter,
			Timeout: ts.Ms(cfg.Fencing.Write_timeout),
		}
	}
	return &heartbeat.Script_writer{
		Runner: script.Exec{},
		Script: cfg.Scripts.Heartbeat,
		Script_rbd: cfg.Scripts.Heartbeat_rbd,
		Timeout: ts.Ms(cfg.Fencing.Write_timeout),
		Interval: cfg.Fencing.Interval,
	}
}

func load_pools(cfg *config.Config) (*pool.Registry, error) {
	var (
		err error
		reg *pool.Registry = pool.New_registry(cfg.Pools_file())
	)
	err = os.MkdirAll(cfg.State_dir, 0750)
	if (err != nil) {
		return nil, err
	}
	err = reg.Load()
	if (err != nil) {
		return nil, err
	}
	/* pools added later, from the config or the api, must be fenceable */
	reg.Set_admission(cfg.Validate_pool)
	for _, ref := range cfg.Pools {
		if _, ok := reg.Get(ref.Uuid); (ok) {
			continue
		}
		err = reg.Add(ref)
		if (err != nil) {
			return nil, fmt.Errorf("pool %s: %w", ref.Uuid, err)
		}
	}
	logger.Log("%d pools registered", reg.Len())
	return reg, nil
}

func run() error {
	var (
		err error
		cfg config.Config
		pools *pool.Registry
		vms *vmreg.Registry
		hv *hypervisor.Hypervisor
		host string
		mounter mount.Interface = mount.New("")
		strategy checker.Strategy
		copt checker.Options
		promreg *prometheus.Registry = prometheus.NewRegistry()
		serf_shutdown_ch chan struct{} = make(chan struct{})
		service_err_ch <-chan error
	)
	logger.Set_debug(opts.debug)
	logger.Log("version %s", version)

	cfg, err = config.Load(opts.config_file)
	if (err != nil) {
		return err
	}
	pools, err = load_pools(&cfg)
	if (err != nil) {
		return err
	}
	/* persisted pools included */
	err = cfg.Validate_scripts(pools.List())
	if (err != nil) {
		return err
	}
	if (cfg.Reg_interval > 0) {
		vms = vmreg.New(cfg.Reg_dir)
	}

	/* hypervisor: the fencing executor, and the host identity */
	hv = hypervisor.New(cfg.Host_id, cfg.Agent_unit, vms)
	err = hv.Connect()
	if (err != nil) {
		return err
	}
	host = hv.Host()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchdog := fence.New(host, cfg.Fencing, pools, new_writer(&cfg, mounter), hv)
	err = watchdog.Register_metrics(promreg)
	if (err != nil) {
		return err
	}
	promreg.MustRegister(collectors.NewGoCollector())

	copt = checker.Options{ Mounter: mounter, Primitive: cfg.Fencing.Primitive }
	if (vms != nil) {
		copt.Volumes = vms
	}
	strategy, err = checker.From_config(cfg.Checker, cfg.Scripts, copt)
	if (err != nil) {
		return err
	}
	inv := &ha.Investigator{
		Strategy: strategy,
		Pools: pools,
		Reach: reach.New(cfg.Reach),
		Port: cfg.Side_channel_port,
	}

	/* serf: peer failures are investigated here and the verdict broadcast */
	if (cfg.Serf_rpc_addr != "") {
		err = serfcomm.Init(cfg.Serf_rpc_addr, host, inv)
		if (err != nil) {
			return err
		}
		defer serfcomm.Shutdown()
		serfcomm.Start_listening(ctx, serf_shutdown_ch)
	}

	svc := service.New(cfg.Listen_addr, service.Deps{
		Host: host,
		Pools: pools,
		Fencing: watchdog,
		Investigator: inv,
		Vms: hv,
		Gatherer: promreg,
		Checker: cfg.Checker,
		Scripts: cfg.Scripts,
		Options: copt,
	})
	service_err_ch, err = svc.Start_listening()
	if (err != nil) {
		return err
	}
	/* prepare atexit function to shutdown service */
	defer func() {
		shutdown_ctx, shutdown_cancel := context.WithTimeout(context.Background(), time.Second * 5)
		defer shutdown_cancel()
		var err error = svc.Shutdown(shutdown_ctx)
		if (err != nil) {
			logger.Log(err.Error())
			err = svc.Close()
			if (err != nil) {
				logger.Log(err.Error())
			}
		}
	}()

	watchdog_done := make(chan struct{})
	go func() {
		watchdog.Run(ctx)
		close(watchdog_done)
	}()
	if (vms != nil) {
		go hv.Vmreg_loop(ctx, cfg.Reg_interval)
	}
	logger.Log("host %s fencing %d pools every %ds, action %s", host, pools.Len(), cfg.Fencing.Interval, cfg.Fencing.Action)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		logger.Log("Got signal: %s", sig)
	case <-serf_shutdown_ch:
		logger.Log("Serf shutdown")
	case err = <-service_err_ch:
		logger.Log("service error: %s", err.Error())
	}
	cancel()
	<-watchdog_done
	return err
}
