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
	"github.com/spf13/cobra"
)

var cmd = &cobra.Command{
	Use:   "hafence",
	Short: "manage the storage fencing of a KVM host",
	Long:  "manage the fenced storage pools of a KVM host and check other hosts, by connecting to its hafenced",
	SilenceUsage: true,
	SilenceErrors: true,
}

func init() {
	var cmd_list = &cobra.Command{
		Use:   "list",
		Short: "List resources and display them in table format",
	}
	var cmd_list_pool = &cobra.Command{
		Use:   "pool",
		Short: "List the fenced storage pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pool_list()
		},
	}
	var cmd_list_state = &cobra.Command{
		Use:   "state",
		Short: "List the fencing state of all pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return state_list()
		},
	}
	var cmd_add = &cobra.Command{
		Use:   "add",
		Short: "Add a resource",
	}
	var cmd_add_pool = &cobra.Command{
		Use:   "pool FILENAME",
		Short: "Start fencing a storage pool",
		Long:  "Start fencing the storage pool described in FILENAME (JSON or YAML)",
		Args:  cobra.ExactArgs(1), /* FILENAME */
		RunE: func(cmd *cobra.Command, args []string) error {
			return pool_add(args[0])
		},
	}
	var cmd_remove = &cobra.Command{
		Use:   "remove",
		Short: "Remove a resource",
	}
	var cmd_remove_pool = &cobra.Command{
		Use:   "pool UUID",
		Short: "Stop fencing a storage pool",
		Long:  "Stop fencing the storage pool identified by UUID. Its marker is left in place.",
		Args:  cobra.ExactArgs(1), /* UUID */
		RunE: func(cmd *cobra.Command, args []string) error {
			return pool_remove(args[0])
		},
	}
	var cmd_get = &cobra.Command{
		Use:   "get",
		Short: "Fetch and display all details about a resource",
	}
	var cmd_get_state = &cobra.Command{
		Use:   "state UUID",
		Short: "Show the fencing state of a pool",
		Long:  "Show the fencing state of the storage pool identified by UUID",
		Args:  cobra.ExactArgs(1), /* UUID */
		RunE: func(cmd *cobra.Command, args []string) error {
			return state_get(args[0])
		},
	}
	var cmd_check = &cobra.Command{
		Use:   "check",
		Short: "Check the liveness of a resource",
	}
	var cmd_check_host = &cobra.Command{
		Use:   "host HOST",
		Short: "Check whether a host is alive",
		Long:  "Check the liveness markers of HOST on the pools of the agent, and its side channel if an address is given",
		Args:  cobra.ExactArgs(1), /* HOST */
		RunE: func(cmd *cobra.Command, args []string) error {
			return host_check(args[0])
		},
	}
	cmd_check_host.Flags().StringVarP(&hafence.check_addr, "addr", "a", "", "side channel address of the host")
	cmd_check_host.Flags().StringSliceVarP(&hafence.check_volumes, "volume", "v", nil, "volume of the host to check for activity (repeatable)")
	cmd_check_host.Flags().BoolVarP(&hafence.all, "pools", "p", false, "also show the outcome of each pool")

	var cmd_get_fencing = &cobra.Command{
		Use:   "fencing",
		Short: "Show the fencing parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fencing_get()
		},
	}
	var cmd_set = &cobra.Command{
		Use:   "set",
		Short: "Change the settings of a resource",
	}
	var cmd_set_fencing = &cobra.Command{
		Use:   "fencing",
		Short: "Change the fencing parameters",
		Long:  "Change the fencing parameters of the agent, from its next cycle on. Parameters not given keep their value.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fencing_set(cmd.Flags())
		},
	}
	cmd_set_fencing.Flags().IntVarP(&hafence.fencing.Interval, "interval", "i", 0, "seconds between cycles")
	cmd_set_fencing.Flags().IntVarP(&hafence.fencing.Max_attempts, "max-attempts", "n", 0, "marker writes per cycle")
	cmd_set_fencing.Flags().IntVarP(&hafence.fencing.Retry_sleep, "retry-sleep", "s", 0, "milliseconds between writes of a cycle")
	cmd_set_fencing.Flags().IntVarP(&hafence.fencing.Write_timeout, "write-timeout", "t", 0, "milliseconds allowed for one write")
	cmd_set_fencing.Flags().IntVarP(&hafence.fencing.Max_failures, "max-failures", "f", 0, "consecutive failed cycles before the action")
	cmd_set_fencing.Flags().StringVarP((*string)(&hafence.fencing.Action), "action", "a", "", "IGNORE, DESTROYVMS or HARDRESET")

	cmd_list.AddCommand(cmd_list_pool, cmd_list_state)
	cmd_get.AddCommand(cmd_get_fencing)
	cmd_set.AddCommand(cmd_set_fencing)
	cmd_add.AddCommand(cmd_add_pool)
	cmd_remove.AddCommand(cmd_remove_pool)
	cmd_get.AddCommand(cmd_get_state)
	cmd_check.AddCommand(cmd_check_host)
	cmd.AddCommand(cmd_list, cmd_add, cmd_remove, cmd_get, cmd_set, cmd_check)
}
