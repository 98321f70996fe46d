// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/direct-state-transfer/chainsheet
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ethereumtest

import (
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
)

// ServeWS serves the node over websocket at an arbitrary free port and returns its url.
// Subscriptions are supported. The server is closed on test cleanup.
func (n *Node) ServeWS(t *testing.T) string {
	port, err := freeport.GetFreePort()
	require.NoErrorf(t, err, "cannot find free ports for serving the node")

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	srv := &http.Server{Addr: addr, Handler: n.server.WebsocketHandler([]string{"*"}), ReadHeaderTimeout: time.Second}
	go func() {
		_ = srv.ListenAndServe()
	}()
	t.Cleanup(func() { srv.Close() })

	url := "ws://" + addr
	require.True(t, ActiveWSListener(url, 5*time.Second), "node not listening at %s", url)
	return url
}

// ActiveWSListener returns true if any program is accepting websocket connections at the given url.
// It retries every 100 ms until the given timeout expires.
func ActiveWSListener(url string, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return false
		default:
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err == nil {
				conn.Close()
				return true
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}
