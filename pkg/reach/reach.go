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
package reach

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"suse.com/hafence/pkg/config"
	"suse.com/hafence/pkg/httpx"
	"suse.com/hafence/pkg/logger"
	"suse.com/hafence/pkg/ts"
)

/* what the side channel of an agent answers: the VMs running there */
type Listing struct {
	Host string `json:"host"`
	Vms []string `json:"vms"`
}

/* the side channel of an agent could not be reached within the retry budget */
type ReachabilityFault struct {
	Addr string
	Port int
	Attempts int
	Err error
}

func (e *ReachabilityFault) Error() string {
	return fmt.Sprintf("agent %s:%d unreachable after %d attempts: %v", e.Addr, e.Port, e.Attempts, e.Err)
}

func (e *ReachabilityFault) Unwrap() error {
	return e.Err
}

type Client struct {
	Retries int
	Retry_sleep time.Duration
	Timeout time.Duration   /* per attempt */
}

func New(cfg config.Reach) *Client {
	return &Client{
		Retries: cfg.Retries,
		Retry_sleep: ts.Ms(cfg.Retry_sleep),
		Timeout: ts.Ms(cfg.Timeout),
	}
}

func (c *Client) attempt(ctx context.Context, addr string, port int) (Listing, error) {
	var (
		err error
		listing Listing
		resp *http.Response
		cancel context.CancelFunc
	)
	ctx, cancel = context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	resp, err = httpx.Do_request(ctx, addr, port, "GET", "/", nil)
	if (err != nil) {
		return listing, err
	}
	_, err = httpx.Decode_response_body(resp, &listing)
	return listing, err
}

/*
 * ask the side channel of the agent at addr:port which VMs it runs.
 * Failing all attempts gives a *ReachabilityFault.
 */
func (c *Client) Check_vms_running_on_agent(ctx context.Context, addr string, port int) (Listing, error) {
	var (
		err error
		listing Listing
		i int
	)
	for i = 1; i <= c.Retries; i++ {
		listing, err = c.attempt(ctx, addr, port)
		if (err == nil) {
			logger.Debug("agent %s:%d runs %d vms", addr, port, len(listing.Vms))
			return listing, nil
		}
		logger.Warn("side channel %s:%d attempt %d/%d: %s", addr, port, i, c.Retries, err.Error())
		if (i == c.Retries) {
			break
		}
		select {
		case <-ctx.Done():
			return Listing{}, &ReachabilityFault{ Addr: addr, Port: port, Attempts: i, Err: ctx.Err() }
		case <-time.After(c.Retry_sleep):
		}
	}
	return Listing{}, &ReachabilityFault{ Addr: addr, Port: port, Attempts: c.Retries, Err: err }
}
