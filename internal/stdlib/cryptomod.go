package stdlib

import (
	"crypto/sha256"
	"encoding/hex"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/bcrypt"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerCrypto wires password hashing (bcrypt) and a content-addressed
// key-derivation primitive built directly on filippo.io/edwards25519's
// scalar/point arithmetic, rather than going through crypto/ed25519's
// higher-level Sign/Verify -- deriving a public point from a seed is the
// one edwards25519 operation simple enough to expose as a single script
// function without building a whole signing-key object model.
func registerCrypto(h *host.Host) {
	m := h.AddModule("crypto")
	m.AddFunction("hashPassword", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(vmm.Pool.Content(args[0])), bcrypt.DefaultCost)
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue("hashPassword: " + err.Error())
		}
		return vmm.Pool.Create(string(hashed)), nil
	})
	m.AddFunction("verifyPassword", 2, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		err := bcrypt.CompareHashAndPassword([]byte(vmm.Pool.Content(args[0])), []byte(vmm.Pool.Content(args[1])))
		return vm.Bool(err == nil), nil
	})
	m.AddFunction("sha256", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		sum := sha256.Sum256([]byte(vmm.Pool.Content(args[0])))
		return vmm.Pool.Create(hex.EncodeToString(sum[:])), nil
	})
	m.AddFunction("derivePublicPoint", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		seed := sha256.Sum256([]byte(vmm.Pool.Content(args[0])))
		scalar, err := edwards25519.NewScalar().SetBytesWithClamping(seed[:32])
		if err != nil {
			return vm.Nil, vm.NewHostErrorValue("derivePublicPoint: " + err.Error())
		}
		point := new(edwards25519.Point).ScalarBaseMult(scalar)
		return vmm.Pool.Create(hex.EncodeToString(point.Bytes())), nil
	})
}
