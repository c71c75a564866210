package stdlib

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestSocketSendReceiveEchoesOverRealConnection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.WriteMessage(mt, data)
	}))
	defer srv.Close()

	h := host.New(vmconfig.Minimal())
	registerSockets(h)

	ctor, ok := h.VM.GetGlobalByName("Socket")
	if !ok {
		t.Fatal("expected Socket to be defined as a global")
	}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	sock, err := h.CallFunction(ctor, []vm.Value{h.VM.Pool.Create(wsURL)})
	if err != nil {
		t.Fatalf("construct Socket: %v", err)
	}
	defer h.CallMethod(sock, "close", nil)

	if _, err := h.CallMethod(sock, "send", []vm.Value{h.VM.Pool.Create("ping")}); err != nil {
		t.Fatalf("send: %v", err)
	}
	reply, err := h.CallMethod(sock, "receive", nil)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if h.VM.Pool.Content(reply) != "ping" {
		t.Fatalf("expected echoed %q, got %q", "ping", h.VM.Pool.Content(reply))
	}
}
