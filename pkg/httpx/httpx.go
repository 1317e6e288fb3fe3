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
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	. "suse.com/hafence/pkg/constants"
)

/*
 * every handler needs to call Decode_request_body, whether it needs to read
 * a body or not, since the request might contain a body to read and ignore,
 * and r.Body needs to be closed. Otherwise connections may stay open.
 */
type Request struct {
	r *http.Request
	body []byte
}
type Response struct {
	r *http.Response
	body []byte
}

const (
	CLIENT_TIMEOUT = 10
	CLIENT_IDLE_CONN_MAX = 100
	CLIENT_IDLE_CONN_MAX_PER_HOST = 10
	CLIENT_IDLE_TIMEOUT = 15
	CLIENT_TLS_TIMEOUT = 5

	SERVER_TIMEOUT = 10
)

var client http.Client = http.Client{
	Timeout: CLIENT_TIMEOUT * time.Second,
	Transport: &http.Transport{
		MaxIdleConns: CLIENT_IDLE_CONN_MAX,
		MaxIdleConnsPerHost: CLIENT_IDLE_CONN_MAX_PER_HOST,
		IdleConnTimeout: CLIENT_IDLE_TIMEOUT * time.Second,
		TLSHandshakeTimeout: CLIENT_TLS_TIMEOUT * time.Second,
	},
}

/* read a body of at most HTTP_MAX_BODY_LEN, content-length may be unknown */
func read_body(body io.Reader, content_length int64) ([]byte, error) {
	if (content_length >= HTTP_MAX_BODY_LEN) {
		return nil, errors.New("content-length exceeded")
	}
	data, err := io.ReadAll(io.LimitReader(body, HTTP_MAX_BODY_LEN))
	if (err != nil) {
		return nil, errors.New("failed to read body")
	}
	if (content_length >= 0 && int64(len(data)) > content_length) {
		return nil, errors.New("body len exceeds content-length")
	}
	if (len(data) >= HTTP_MAX_BODY_LEN) {
		return nil, errors.New("body too large")
	}
	return data, nil
}

func Decode_request_body(r *http.Request, arg any) (Request, error) {
	var (
		err error
		vr Request
	)
	vr.r = r
	defer r.Body.Close()
	if (arg == nil) {
		return vr, nil
	}
	if (r.ContentLength == 0) {
		return vr, errors.New("Body expected but not found")
	}
	vr.body, err = read_body(r.Body, r.ContentLength)
	if (err != nil) {
		return vr, err
	}
	err = json.NewDecoder(bytes.NewReader(vr.body)).Decode(arg)
	if (err != nil) {
		return vr, err
	}
	return vr, nil
}

/* decode a json body of a 2xx response. Other statuses become an error */
func Decode_response_body(r *http.Response, result any) (Response, error) {
	var (
		err error
		vr Response
	)
	vr.r = r
	defer r.Body.Close()
	if (r.StatusCode < 200 || r.StatusCode > 299) {
		data, _ := read_body(r.Body, -1)
		return vr, fmt.Errorf("%s: %s", r.Status, bytes.TrimSpace(data))
	}
	if (result == nil) {
		return vr, nil
	}
	if (r.ContentLength == 0) {
		return vr, errors.New("Body expected but not found")
	}
	vr.body, err = read_body(r.Body, r.ContentLength)
	if (err != nil) {
		return vr, err
	}
	err = json.NewDecoder(bytes.NewReader(vr.body)).Decode(result)
	return vr, err
}

/* send a json request to server:port. A nil arg sends no body */
func Do_request(ctx context.Context, server string, port int, method string, path string, arg any) (*http.Response, error) {
	var (
		addr url.URL
		buf bytes.Buffer
		err error
		body io.Reader
	)
	addr.Path = path
	addr.Host = net.JoinHostPort(server, strconv.Itoa(port))
	addr.Scheme = "http"
	if (arg != nil) {
		err = json.NewEncoder(&buf).Encode(arg)
		if (err != nil) {
			return nil, err
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, addr.String(), body)
	if (err != nil) {
		return nil, err
	}
	if (body != nil) {
		req.Header.Set("Content-Type", "application/json")
	}
	return client.Do(req)
}

func Do_response(w http.ResponseWriter, http_status int, buf *bytes.Buffer) {
	if (buf != nil) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	} else {
		w.Header().Set("Content-Length", "0")
	}
	w.WriteHeader(http_status)
	if (buf != nil) {
		w.Write(buf.Bytes())
	}
}

/* encode v as a single json line and send it */
func Do_json(w http.ResponseWriter, http_status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	Do_response(w, http_status, &buf)
}

func Shutdown() {
	transport, ok := client.Transport.(*http.Transport)
	if (ok) {
		transport.CloseIdleConnections()
	}
}
