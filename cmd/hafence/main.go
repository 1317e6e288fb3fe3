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
	"text/tabwriter"

	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/httpx"
	. "suse.com/hafence/pkg/constants"
)

type HafenceClient struct {
	api_server string           // the agent to talk to (default HAFENCE_API_SERVER env)
	port int
	w *tabwriter.Writer

	check_addr string           // side channel address of the checked host
	check_volumes []string
	all bool
	fencing config.Fencing      // parameters given to set fencing, only changed flags apply
}

var hafence HafenceClient = HafenceClient{
	w: tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0),
}

/* one request to the agent, decoding the json answer into result if not nil */
func (h *HafenceClient) call(method string, path string, arg any, result any) error {
	var server string = h.api_server
	if (server == "") {
		server = "localhost"
	}
	resp, err := httpx.Do_request(context.Background(), server, h.port, method, path, arg)
	if (err != nil) {
		return err
	}
	_, err = httpx.Decode_response_body(resp, result)
	return err
}

func main() {
	var err error
	cmd.PersistentFlags().StringVarP(&hafence.api_server, "api-server", "A", os.Getenv("HAFENCE_API_SERVER"), "The agent to use. Defaults to the HAFENCE_API_SERVER env variable, or localhost.")
	cmd.PersistentFlags().IntVarP(&hafence.port, "port", "P", SIDE_CHANNEL_PORT, "The agent port")
	err = cmd.Execute()
	if (err != nil) {
		fmt.Fprintf(os.Stderr, "failed to execute: %s\n", err.Error())
		os.Exit(1)
	}
	hafence.w.Flush()
	os.Exit(0)
}
