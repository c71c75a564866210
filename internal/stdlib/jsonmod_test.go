package stdlib

import (
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestJSONStringifyParseRoundTripsMap(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerJSON(h)

	m := h.VM.NewMap()
	m.Obj.AsMap().Items["name"] = h.VM.Pool.Create("duskvm")
	m.Obj.AsMap().Items["version"] = vm.Int(1)

	stringify := moduleFn(t, h, "json", "stringify")
	raw, err := h.CallFunction(stringify, []vm.Value{m})
	if err != nil {
		t.Fatalf("json.stringify: %v", err)
	}

	parse := moduleFn(t, h, "json", "parse")
	parsed, err := h.CallFunction(parse, []vm.Value{raw})
	if err != nil {
		t.Fatalf("json.parse: %v", err)
	}
	if parsed.Kind != vm.KindMap {
		t.Fatalf("expected a map back, got %v", parsed.Kind)
	}
	items := parsed.Obj.AsMap().Items
	if h.VM.Pool.Content(items["name"]) != "duskvm" {
		t.Fatalf("expected name=duskvm, got %v", items["name"])
	}
	if items["version"].AsIntCoerced() != 1 {
		t.Fatalf("expected version=1, got %v", items["version"])
	}
}

func TestJSONParseRejectsMalformedInput(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerJSON(h)
	parse := moduleFn(t, h, "json", "parse")

	_, err := h.CallFunction(parse, []vm.Value{h.VM.Pool.Create("{not json")})
	if err == nil {
		t.Fatal("expected a DuskError for malformed JSON")
	}
}
