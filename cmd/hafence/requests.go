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
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/pflag"

	"suse.com/hafence/pkg/checker"
	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/fence"
	"suse.com/hafence/pkg/ha"
	"suse.com/hafence/pkg/pool"
	"suse.com/hafence/pkg/service"
)

func pool_list() error {
	var (
		err error
		list []pool.Ref
	)
	err = hafence.call(http.MethodGet, "/pools", nil, &list)
	if (err != nil) {
		return err
	}
	fmt.Fprintf(hafence.w, "UUID\tTYPE\tSOURCE\tMOUNT\n")
	for _, ref := range list {
		fmt.Fprintf(hafence.w, "%s\t%s\t%s\t%s\n", ref.Uuid, ref.Type, ref.Source(), ref.Mount_dest)
	}
	return nil
}

/* the file may be json or yaml, json is yaml */
func pool_add(filename string) error {
	var (
		err error
		data []byte
		ref pool.Ref
	)
	data, err = os.ReadFile(filename)
	if (err != nil) {
		return err
	}
	err = yaml.Unmarshal(data, &ref)
	if (err != nil) {
		return fmt.Errorf("%s: %w", filename, err)
	}
	err = ref.Validate()
	if (err != nil) {
		return fmt.Errorf("%s: %w", filename, err)
	}
	err = hafence.call(http.MethodPost, "/pools", &ref, &ref)
	if (err != nil) {
		return err
	}
	fmt.Fprintf(hafence.w, "%s\n", ref.Uuid)
	return nil
}

func pool_remove(uuid string) error {
	return hafence.call(http.MethodDelete, "/pools/" + url.PathEscape(uuid), nil, nil)
}

func print_states(states ...fence.State) {
	fmt.Fprintf(hafence.w, "POOL\tSTATUS\tFAILURES\tESCALATED\tLAST SUCCESS\tLAST ERROR\n")
	for _, st := range states {
		var last string = "never"
		if (!st.Last_success.IsZero()) {
			last = time.Since(st.Last_success).Round(time.Second).String() + " ago"
		}
		fmt.Fprintf(hafence.w, "%s\t%s\t%d\t%t\t%s\t%s\n", st.Pool_uuid, st.Status, st.Failures,
			st.Escalated, last, st.Last_error)
	}
}

func state_list() error {
	var (
		err error
		states []fence.State
	)
	err = hafence.call(http.MethodGet, "/states", nil, &states)
	if (err != nil) {
		return err
	}
	print_states(states...)
	return nil
}

func state_get(uuid string) error {
	var (
		err error
		st fence.State
	)
	err = hafence.call(http.MethodGet, "/pools/" + url.PathEscape(uuid) + "/state", nil, &st)
	if (err != nil) {
		return err
	}
	print_states(st)
	return nil
}

func host_check(host string) error {
	var (
		err error
		v ha.Verdict
		arg any
	)
	if (hafence.check_addr != "" || len(hafence.check_volumes) > 0) {
		arg = &service.Check_request{ Addr: hafence.check_addr, Volumes: hafence.check_volumes }
	}
	err = hafence.call(http.MethodPost, "/hosts/" + url.PathEscape(host) + "/check", arg, &v)
	if (err != nil) {
		return err
	}
	fmt.Fprintf(hafence.w, "HOST\tOUTCOME\tSTORAGE\tREACHABLE\tVMS\n")
	fmt.Fprintf(hafence.w, "%s\t%s\t%s\t%t\t%d\n", v.Host, v.Outcome, v.Storage.Outcome, v.Reachable, len(v.Vms))
	if (v.Reach_error != "") {
		fmt.Fprintf(hafence.w, "\nreach: %s\n", v.Reach_error)
	}
	if (hafence.all) {
		fmt.Fprintf(hafence.w, "\nPOOL\tOUTCOME\n")
		for _, p := range v.Storage.Pools {
			fmt.Fprintf(hafence.w, "%s\t%s\n", p.Pool_uuid, p.Outcome)
		}
	}
	if (v.Outcome == checker.DEAD) {
		hafence.w.Flush()
		os.Exit(2)
	}
	return nil
}

func print_fencing(cfg config.Fencing) {
	fmt.Fprintf(hafence.w, "INTERVAL\tATTEMPTS\tRETRY SLEEP\tWRITE TIMEOUT\tMAX FAILURES\tACTION\tPRIMITIVE\n")
	fmt.Fprintf(hafence.w, "%ds\t%d\t%dms\t%dms\t%d\t%s\t%s\n", cfg.Interval, cfg.Max_attempts, cfg.Retry_sleep,
		cfg.Write_timeout, cfg.Max_failures, cfg.Action, cfg.Primitive)
}

func fencing_get() error {
	var (
		err error
		cfg config.Fencing
	)
	err = hafence.call(http.MethodGet, "/fencing", nil, &cfg)
	if (err != nil) {
		return err
	}
	print_fencing(cfg)
	return nil
}

/* read the current parameters, apply the flags given, and write them back */
func fencing_set(flags *pflag.FlagSet) error {
	var (
		err error
		cfg config.Fencing
	)
	err = hafence.call(http.MethodGet, "/fencing", nil, &cfg)
	if (err != nil) {
		return err
	}
	if (flags.Changed("interval")) {
		cfg.Interval = hafence.fencing.Interval
	}
	if (flags.Changed("max-attempts")) {
		cfg.Max_attempts = hafence.fencing.Max_attempts
	}
	if (flags.Changed("retry-sleep")) {
		cfg.Retry_sleep = hafence.fencing.Retry_sleep
	}
	if (flags.Changed("write-timeout")) {
		cfg.Write_timeout = hafence.fencing.Write_timeout
	}
	if (flags.Changed("max-failures")) {
		cfg.Max_failures = hafence.fencing.Max_failures
	}
	if (flags.Changed("action")) {
		cfg.Action = config.Action(strings.ToUpper(string(hafence.fencing.Action)))
	}
	err = hafence.call(http.MethodPut, "/fencing", &cfg, &cfg)
	if (err != nil) {
		return err
	}
	print_fencing(cfg)
	return nil
}
