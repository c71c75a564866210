package stdlib

import (
	"encoding/json"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerJSON wires encoding/json behind stringify/parse, converting
// between JSON values and script Arrays/Maps/primitives.
func registerJSON(h *host.Host) {
	m := h.AddModule("json")
	m.AddFunction("stringify", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		raw, err := json.Marshal(toJSON(vmm, args[0]))
		if err != nil {
			return vm.Nil, vm.NewRuntimeErrorValue("json.stringify: " + err.Error())
		}
		return vmm.Pool.Create(string(raw)), nil
	})
	m.AddFunction("parse", 1, func(vmm *vm.VM, args []vm.Value) (vm.Value, *vm.DuskError) {
		var decoded interface{}
		if err := json.Unmarshal([]byte(vmm.Pool.Content(args[0])), &decoded); err != nil {
			return vm.Nil, vm.NewRuntimeErrorValue("json.parse: " + err.Error())
		}
		return fromJSON(vmm, decoded), nil
	})
}

// toJSON converts a script Value into a plain Go value json.Marshal can
// walk (map[string]interface{}/[]interface{}/primitives).
func toJSON(vmm *vm.VM, v vm.Value) interface{} {
	switch v.Kind {
	case vm.KindNil:
		return nil
	case vm.KindBool:
		return v.AsBool()
	case vm.KindByte, vm.KindInt, vm.KindUint:
		return v.AsIntCoerced()
	case vm.KindFloat, vm.KindDouble:
		return v.AsDoubleCoerced()
	case vm.KindString:
		return vmm.Pool.Content(v)
	case vm.KindArray:
		arr := v.Obj.AsArray()
		out := make([]interface{}, len(arr.Elements))
		for i, e := range arr.Elements {
			out[i] = toJSON(vmm, e)
		}
		return out
	case vm.KindMap:
		m := v.Obj.AsMap()
		out := make(map[string]interface{}, len(m.Items))
		for k, val := range m.Items {
			out[k] = toJSON(vmm, val)
		}
		return out
	default:
		return vmm.Pool.ToString(v)
	}
}

// fromJSON converts a decoded JSON value back into a script Value.
func fromJSON(vmm *vm.VM, decoded interface{}) vm.Value {
	switch d := decoded.(type) {
	case nil:
		return vm.Nil
	case bool:
		return vm.Bool(d)
	case float64:
		return vm.Float64(d)
	case string:
		return vmm.Pool.Create(d)
	case []interface{}:
		out := make([]vm.Value, len(d))
		for i, e := range d {
			out[i] = fromJSON(vmm, e)
		}
		return vmm.NewArray(out)
	case map[string]interface{}:
		mv := vmm.NewMap()
		m := mv.Obj.AsMap()
		for k, val := range d {
			m.Items[k] = fromJSON(vmm, val)
		}
		return mv
	}
	return vm.Nil
}
