package stdlib

import (
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerSockets wires a native class over *websocket.Conn (spec
// expansion: networking surface for a host-embedded scripting system,
// grounded on gorilla/websocket since that's the transport the teacher's
// own stack already depends on). A connection is opaque NativeData on a
// Socket instance; the constructor connects and send/receive/close are
// native methods rather than a raw fd so the GC never has to reason about socket lifetime beyond
// what Dtor already does on reclaim.
func registerSockets(h *host.Host) {
	h.RegisterNativeClass("Socket", 1, func(vmm *vm.VM, args []vm.Value) (interface{}, *vm.DuskError) {
		raw := vmm.Pool.Content(args[0])
		u, err := url.Parse(raw)
		if err != nil {
			return nil, vm.NewRuntimeErrorValue("Socket: " + err.Error())
		}
		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.Dial(u.String(), nil)
		if err != nil {
			return nil, vm.NewHostErrorValue("Socket connect: " + err.Error())
		}
		return conn, nil
	}, func(self interface{}) {
		if conn, ok := self.(*websocket.Conn); ok {
			conn.Close()
		}
	}).
		AddMethod("send", 1, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
			conn := self.(*websocket.Conn)
			msg := vmm.Pool.Content(args[0])
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return vm.Nil, vm.NewHostErrorValue(err.Error())
			}
			return vm.Bool(true), nil
		}).
		AddMethod("receive", 0, func(vmm *vm.VM, self interface{}, _ []vm.Value) (vm.Value, *vm.DuskError) {
			conn := self.(*websocket.Conn)
			_, data, err := conn.ReadMessage()
			if err != nil {
				return vm.Nil, vm.NewHostErrorValue(err.Error())
			}
			return vmm.Pool.Create(string(data)), nil
		}).
		AddMethod("close", 0, func(_ *vm.VM, self interface{}, _ []vm.Value) (vm.Value, *vm.DuskError) {
			conn := self.(*websocket.Conn)
			conn.Close()
			return vm.Nil, nil
		})
}
