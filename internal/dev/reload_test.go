package dev

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ReloadMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func waitClients(t *testing.T, rs *ReloadServer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for rs.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", rs.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReloadServerBroadcastsVersions(t *testing.T) {
	rs := NewReloadServer(nil)
	srv := httptest.NewServer(rs)
	defer srv.Close()
	defer rs.Close()

	conn := dial(t, srv)
	waitClients(t, rs, 1)

	rs.NotifyVersion("v1")
	if msg := readMessage(t, conn); msg.Type != ReloadTypeVersion || msg.Version != "v1" {
		t.Fatalf("msg = %+v", msg)
	}

	rs.NotifyError("E202: Duplicate route")
	if msg := readMessage(t, conn); msg.Type != ReloadTypeError || !strings.Contains(msg.Error, "E202") {
		t.Fatalf("msg = %+v", msg)
	}

	rs.ClearError()
	if msg := readMessage(t, conn); msg.Type != ReloadTypeClear {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestReloadServerGreetsLateClients(t *testing.T) {
	rs := NewReloadServer(nil)
	srv := httptest.NewServer(rs)
	defer srv.Close()
	defer rs.Close()

	rs.NotifyVersion("v7")
	rs.NotifyError("scan failed")

	conn := dial(t, srv)
	if msg := readMessage(t, conn); msg.Version != "v7" {
		t.Fatalf("first msg = %+v, want version v7", msg)
	}
	if msg := readMessage(t, conn); msg.Error != "scan failed" {
		t.Fatalf("second msg = %+v, want pending error", msg)
	}
	if rs.Version() != "v7" {
		t.Fatalf("Version() = %q", rs.Version())
	}
}

func TestReloadServerDropsClosedClients(t *testing.T) {
	rs := NewReloadServer(nil)
	srv := httptest.NewServer(rs)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, rs, 1)
	conn.Close()
	waitClients(t, rs, 0)
}

func TestReloadMessageJSON(t *testing.T) {
	data, err := json.Marshal(ReloadMessage{Type: ReloadTypeVersion, Version: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"version","version":"abc"}` {
		t.Fatalf("json = %s", data)
	}
}

func TestClientScript(t *testing.T) {
	script := ClientScript("/_transit/dev")
	for _, want := range []string{"<script>", `"/_transit/dev"`, "location.reload()", "msg.version"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}
