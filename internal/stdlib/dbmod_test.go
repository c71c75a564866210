package stdlib

import (
	"testing"

	"duskvm/internal/host"
	"duskvm/internal/vm"
	"duskvm/internal/vmconfig"
)

func TestDatabaseQueryAndExecAgainstInMemorySQLite(t *testing.T) {
	h := host.New(vmconfig.Minimal())
	registerDatabase(h)

	ctor, ok := h.VM.GetGlobalByName("Database")
	if !ok {
		t.Fatal("expected Database to be defined as a global")
	}
	db, err := h.CallFunction(ctor, []vm.Value{h.VM.Pool.Create("sqlite"), h.VM.Pool.Create(":memory:")})
	if err != nil {
		t.Fatalf("construct Database: %v", err)
	}
	defer h.CallMethod(db, "close", nil)

	if _, err := h.CallMethod(db, "exec", []vm.Value{
		h.VM.Pool.Create("create table greetings(msg text)"),
	}); err != nil {
		t.Fatalf("exec create table: %v", err)
	}
	if _, err := h.CallMethod(db, "exec", []vm.Value{
		h.VM.Pool.Create("insert into greetings(msg) values ('hello')"),
	}); err != nil {
		t.Fatalf("exec insert: %v", err)
	}

	rows, err := h.CallMethod(db, "query", []vm.Value{h.VM.Pool.Create("select msg from greetings")})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	arr := rows.Obj.AsArray().Elements
	if len(arr) != 1 {
		t.Fatalf("expected one row, got %d", len(arr))
	}
	row := arr[0].Obj.AsMap()
	if h.VM.Pool.Content(row.Items["msg"]) != "hello" {
		t.Fatalf("expected msg=hello, got %v", row.Items["msg"])
	}
}
