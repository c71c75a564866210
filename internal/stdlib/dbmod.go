package stdlib

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	_ "github.com/denisenkom/go-mssqldb"

	"duskvm/internal/host"
	"duskvm/internal/vm"
)

// registerDatabase wires database/sql behind a Database native class, with
// every driver the teacher's own go.mod already pulls in blank-imported so
// a single driverName string ("mysql", "postgres", "sqlite", "sqlserver")
// picks the backend at script runtime (spec expansion's db_query
// scenario). Query results come back as an array of row-maps: script code
// never deals with *sql.Rows directly.
func registerDatabase(h *host.Host) {
	h.RegisterNativeClass("Database", 2, func(vmm *vm.VM, args []vm.Value) (interface{}, *vm.DuskError) {
		driver := vmm.Pool.Content(args[0])
		dsn := vmm.Pool.Content(args[1])
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, vm.NewHostErrorValue("Database: " + err.Error())
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, vm.NewHostErrorValue("Database: " + err.Error())
		}
		return db, nil
	}, func(self interface{}) {
		if db, ok := self.(*sql.DB); ok {
			db.Close()
		}
	}).
		AddMethod("query", 1, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
			db := self.(*sql.DB)
			rows, err := db.Query(vmm.Pool.Content(args[0]))
			if err != nil {
				return vm.Nil, vm.NewHostErrorValue("query: " + err.Error())
			}
			defer rows.Close()
			return rowsToArray(vmm, rows)
		}).
		AddMethod("exec", 1, func(vmm *vm.VM, self interface{}, args []vm.Value) (vm.Value, *vm.DuskError) {
			db := self.(*sql.DB)
			result, err := db.Exec(vmm.Pool.Content(args[0]))
			if err != nil {
				return vm.Nil, vm.NewHostErrorValue("exec: " + err.Error())
			}
			affected, _ := result.RowsAffected()
			return vm.Int(int32(affected)), nil
		}).
		AddMethod("close", 0, func(_ *vm.VM, self interface{}, _ []vm.Value) (vm.Value, *vm.DuskError) {
			self.(*sql.DB).Close()
			return vm.Nil, nil
		})
}

// rowsToArray drains rows into an array of maps keyed by column name,
// converting every driver.Value to the nearest script Value kind.
func rowsToArray(vmm *vm.VM, rows *sql.Rows) (vm.Value, *vm.DuskError) {
	cols, err := rows.Columns()
	if err != nil {
		return vm.Nil, vm.NewHostErrorValue(err.Error())
	}

	var out []vm.Value
	for rows.Next() {
		scanTargets := make([]interface{}, len(cols))
		values := make([]interface{}, len(cols))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return vm.Nil, vm.NewHostErrorValue(err.Error())
		}
		rowMap := vmm.NewMap()
		m := rowMap.Obj.AsMap()
		for i, col := range cols {
			m.Items[col] = sqlValueToScript(vmm, values[i])
		}
		out = append(out, rowMap)
	}
	if err := rows.Err(); err != nil {
		return vm.Nil, vm.NewHostErrorValue(err.Error())
	}
	return vmm.NewArray(out), nil
}

func sqlValueToScript(vmm *vm.VM, v interface{}) vm.Value {
	switch val := v.(type) {
	case nil:
		return vm.Nil
	case int64:
		return vm.Int(int32(val))
	case float64:
		return vm.Float64(val)
	case bool:
		return vm.Bool(val)
	case []byte:
		return vmm.Pool.Create(string(val))
	case string:
		return vmm.Pool.Create(val)
	default:
		return vmm.Pool.Create("")
	}
}
