package stdlib

import (
	"duskvm/internal/host"
	"duskvm/internal/vmconfig"
)

// RegisterAll wires every optional module whose vmconfig.Config toggle is
// on, the runtime counterpart of spec §6's "module registration, gated by
// config, never affects CORE opcode semantics."
func RegisterAll(h *host.Host, cfg vmconfig.Config) {
	if cfg.EnableMath {
		registerMath(h)
	}
	if cfg.EnableJSON {
		registerJSON(h)
	}
	if cfg.EnableOS {
		registerOS(h, cfg.EnableFileIO)
	}
	if cfg.EnablePath {
		registerPath(h)
	}
	if cfg.EnableTime {
		registerTime(h)
	}
	if cfg.EnableRegex {
		registerRegex(h)
	}
	if cfg.EnableZip {
		registerZip(h)
	}
	if cfg.EnableFS {
		registerFS(h)
	}
	if cfg.EnableSockets {
		registerSockets(h)
	}
	if cfg.EnableDatabase {
		registerDatabase(h)
	}
	if cfg.EnableConcurrency {
		registerConcurrency(h)
	}
	if cfg.EnableCrypto {
		registerCrypto(h)
	}
}
