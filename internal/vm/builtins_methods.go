package vm

import (
	"os"
	"sort"
	"strings"
)

// invoke implements OP_INVOKE (spec §4.6 "Method invocation"): resolve name
// against the receiver -- user class method, native class method, or one of
// the built-in string/array/map/buffer methods -- and dispatch.
func (vm *VM) invoke(p *Process, name string, argCount int) (callOutcome, *DuskError) {
	recv := p.peek(argCount)
	switch recv.Kind {
	case KindClassInstance:
		inst := recv.Obj.AsClassInstance()
		fn, nativeMethod, ok := inst.Blueprint.ResolveMethod(name)
		if !ok {
			return callDone, NewRuntimeErrorValue("undefined method: " + name)
		}
		if fn != nil {
			return vm.callScriptFunction(p, fn, nil, argCount)
		}
		return vm.resolveCall(p, argCount, func(args []Value) (Value, *DuskError) {
			return nativeMethod.Fn(vm, inst.NativeData, args)
		})
	case KindNativeClassInstance:
		inst := recv.Obj.AsNativeClassInstance()
		m, ok := inst.Class.Methods[name]
		if !ok {
			return callDone, NewRuntimeErrorValue("undefined native method: " + name)
		}
		return vm.resolveCall(p, argCount, func(args []Value) (Value, *DuskError) {
			return m.Fn(vm, inst.UserData, args)
		})
	case KindArray, KindMap, KindBuffer, KindString:
		return vm.invokeBuiltin(p, recv, name, argCount)
	}
	return callDone, NewRuntimeErrorValue("cannot invoke method on " + recv.Kind.String())
}

// superInvoke implements OP_SUPER_INVOKE (spec §4.6 "SUPER_INVOKE
// semantics"): resolution starts at the named class's blueprint (the
// static superclass named at the call site) rather than the receiver's
// dynamic class, then otherwise proceeds exactly like invoke.
func (vm *VM) superInvoke(p *Process, className, methodName string, argCount int) (callOutcome, *DuskError) {
	bp, ok := vm.classes[className]
	if !ok {
		return callDone, NewRuntimeErrorValue("unknown class: " + className)
	}
	fn, nativeMethod, ok := bp.ResolveMethod(methodName)
	if !ok {
		return callDone, NewRuntimeErrorValue("undefined super method: " + methodName)
	}
	if fn != nil {
		return vm.callScriptFunction(p, fn, nil, argCount)
	}
	recv := p.peek(argCount)
	inst := recv.Obj.AsClassInstance()
	return vm.resolveCall(p, argCount, func(args []Value) (Value, *DuskError) {
		return nativeMethod.Fn(vm, inst.NativeData, args)
	})
}

func (vm *VM) invokeBuiltin(p *Process, recv Value, name string, argCount int) (callOutcome, *DuskError) {
	return vm.resolveCall(p, argCount, func(args []Value) (Value, *DuskError) {
		switch recv.Kind {
		case KindArray:
			return vm.arrayMethod(recv, name, args)
		case KindMap:
			return vm.mapMethod(recv, name, args)
		case KindBuffer:
			return vm.bufferMethod(recv, name, args)
		case KindString:
			return vm.stringMethod(recv, name, args)
		}
		return Nil, NewRuntimeErrorValue("no builtin methods for " + recv.Kind.String())
	})
}

// --- Array built-in methods (spec §4.6) -------------------------------------

func (vm *VM) arrayMethod(recv Value, name string, args []Value) (Value, *DuskError) {
	arr := recv.Obj.AsArray()
	switch name {
	case "push":
		arr.Elements = append(arr.Elements, args...)
		return recv, nil
	case "pop":
		if len(arr.Elements) == 0 {
			return Nil, NewRuntimeErrorValue("pop on empty array")
		}
		v := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return v, nil
	case "length":
		return Int(int32(len(arr.Elements))), nil
	case "find":
		for i, e := range arr.Elements {
			if ValuesEqual(e, args[0]) {
				return Int(int32(i)), nil
			}
		}
		return Int(-1), nil
	case "has":
		for _, e := range arr.Elements {
			if ValuesEqual(e, args[0]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case "concat":
		other := args[0].Obj.AsArray()
		out := make([]Value, 0, len(arr.Elements)+len(other.Elements))
		out = append(out, arr.Elements...)
		out = append(out, other.Elements...)
		return vm.NewArray(out), nil
	case "insert":
		idx := int(args[0].AsIntCoerced())
		arr.Elements = append(arr.Elements, Nil)
		copy(arr.Elements[idx+1:], arr.Elements[idx:])
		arr.Elements[idx] = args[1]
		return recv, nil
	case "remove":
		idx := int(args[0].AsIntCoerced())
		if idx < 0 || idx >= len(arr.Elements) {
			return Nil, NewRuntimeErrorValue("array index out of range")
		}
		v := arr.Elements[idx]
		arr.Elements = append(arr.Elements[:idx], arr.Elements[idx+1:]...)
		return v, nil
	case "fill":
		for i := range arr.Elements {
			arr.Elements[i] = args[0]
		}
		return recv, nil
	case "copy":
		out := make([]Value, len(arr.Elements))
		copy(out, arr.Elements)
		return vm.NewArray(out), nil
	case "slice":
		start := clampIndex(int(args[0].AsIntCoerced()), len(arr.Elements))
		end := len(arr.Elements)
		if len(args) > 1 {
			end = clampIndex(int(args[1].AsIntCoerced()), len(arr.Elements))
		}
		if start > end {
			start, end = end, start
		}
		out := make([]Value, end-start)
		copy(out, arr.Elements[start:end])
		return vm.NewArray(out), nil
	}
	return Nil, NewRuntimeErrorValue("unknown array method: " + name)
}

// --- Map built-in methods ----------------------------------------------------

func (vm *VM) mapMethod(recv Value, name string, args []Value) (Value, *DuskError) {
	m := recv.Obj.AsMap()
	switch name {
	case "has":
		_, ok := m.Items[vm.Pool.Content(args[0])]
		return Bool(ok), nil
	case "remove":
		delete(m.Items, vm.Pool.Content(args[0]))
		return Nil, nil
	case "length":
		return Int(int32(len(m.Items))), nil
	case "keys":
		return vm.NewArray(vm.mapKeyValues(m, true)), nil
	case "values":
		return vm.NewArray(vm.mapKeyValues(m, false)), nil
	}
	return Nil, NewRuntimeErrorValue("unknown map method: " + name)
}

// mapKeyValues returns keys or values in sorted-by-key order so debug
// output and iteration are reproducible despite Go's randomized map order.
func (vm *VM) mapKeyValues(m *Map, keys bool) []Value {
	names := make([]string, 0, len(m.Items))
	for k := range m.Items {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]Value, len(names))
	for i, k := range names {
		if keys {
			out[i] = vm.Pool.Create(k)
		} else {
			out[i] = m.Items[k]
		}
	}
	return out
}

// --- Buffer built-in methods -------------------------------------------------

func (vm *VM) bufferMethod(recv Value, name string, args []Value) (Value, *DuskError) {
	buf := recv.Obj.AsBuffer()
	switch name {
	case "length":
		return Int(int32(buf.Count)), nil
	case "tell":
		return Int(int32(buf.Cursor)), nil
	case "seek":
		buf.Cursor = int(args[0].AsIntCoerced())
		return Nil, nil
	case "writeByte":
		if buf.Cursor >= len(buf.Data) {
			return Nil, NewRuntimeErrorValue("buffer overflow")
		}
		buf.Data[buf.Cursor] = byte(args[0].AsIntCoerced())
		buf.Cursor++
		return Nil, nil
	case "readByte":
		if buf.Cursor >= len(buf.Data) {
			return Nil, NewRuntimeErrorValue("buffer underflow")
		}
		v := Byte(buf.Data[buf.Cursor])
		buf.Cursor++
		return v, nil
	case "writeShort":
		return vm.writeCursor(buf, BufI16, args[0])
	case "readShort":
		return vm.readCursor(buf, BufI16)
	case "writeInt":
		return vm.writeCursor(buf, BufI32, args[0])
	case "readInt":
		return vm.readCursor(buf, BufI32)
	case "writeFloat":
		return vm.writeCursor(buf, BufF32, args[0])
	case "readFloat":
		return vm.readCursor(buf, BufF32)
	case "fill":
		b := byte(args[0].AsIntCoerced())
		for i := range buf.Data {
			buf.Data[i] = b
		}
		return recv, nil
	case "copy":
		out := vm.NewBuffer(buf.ElemType, buf.Count)
		copy(out.Obj.AsBuffer().Data, buf.Data)
		return out, nil
	case "save":
		path := vm.Pool.Content(args[0])
		if err := os.WriteFile(path, buf.Data, 0o644); err != nil {
			return Nil, NewHostErrorValue(err.Error())
		}
		return Bool(true), nil
	}
	return Nil, NewRuntimeErrorValue("unknown buffer method: " + name)
}

// writeCursor/readCursor implement the typed writeShort/readShort/
// writeInt/readInt/writeFloat/readFloat methods: same cursor-based API as
// writeByte/readByte, just advancing by each type's byte width instead of
// one, and reusing the encode/decode logic GET_INDEX/SET_INDEX already use
// so a buffer's typed-array reading and its stream-style reading agree on
// wire format.
func (vm *VM) writeCursor(buf *Buffer, t BufferElemType, v Value) (Value, *DuskError) {
	width := t.Size()
	if buf.Cursor+width > len(buf.Data) {
		return Nil, NewRuntimeErrorValue("buffer overflow")
	}
	encodeElem(t, buf.Data[buf.Cursor:], v)
	buf.Cursor += width
	return Nil, nil
}

func (vm *VM) readCursor(buf *Buffer, t BufferElemType) (Value, *DuskError) {
	width := t.Size()
	if buf.Cursor+width > len(buf.Data) {
		return Nil, NewRuntimeErrorValue("buffer underflow")
	}
	v := decodeElem(t, buf.Data[buf.Cursor:])
	buf.Cursor += width
	return v, nil
}

// --- String built-in methods (thin wrappers over the pool's derived ops) ----

func (vm *VM) stringMethod(recv Value, name string, args []Value) (Value, *DuskError) {
	switch name {
	case "length":
		return Int(int32(len(vm.Pool.Content(recv)))), nil
	case "upper":
		return vm.Pool.Upper(recv), nil
	case "lower":
		return vm.Pool.Lower(recv), nil
	case "trim":
		return vm.Pool.Trim(recv), nil
	case "concat":
		return vm.Pool.Concat(recv, args[0]), nil
	case "find":
		return Int(int32(vm.Pool.IndexOf(recv, args[0]))), nil
	case "split":
		return vm.NewArray(vm.Pool.Split(recv, args[0])), nil
	case "replace":
		return vm.Pool.Replace(recv, args[0], args[1]), nil
	case "startsWith":
		return Bool(vm.Pool.StartsWith(recv, args[0])), nil
	case "endsWith":
		return Bool(vm.Pool.EndsWith(recv, args[0])), nil
	case "repeat":
		return vm.Pool.Repeat(recv, int(args[0].AsIntCoerced())), nil
	case "slice":
		start := int(args[0].AsIntCoerced())
		end := len(vm.Pool.Content(recv))
		if len(args) > 1 {
			end = int(args[1].AsIntCoerced())
		}
		return vm.Pool.Substring(recv, start, end), nil
	}
	return Nil, NewRuntimeErrorValue("unknown string method: " + name)
}

// --- OP_PRINT / OP_FUNC_LEN / OP_ITER_* --------------------------------------

// hostPrint implements OP_PRINT: join every argument's display form with a
// space and write it through the VM's diagnostic logger, mirroring the
// teacher's print-via-fmt convention (spec §4.6).
func (vm *VM) hostPrint(args []Value) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = vm.Pool.ToString(a)
	}
	vm.Log.Infof("%s", strings.Join(parts, " "))
}

func (vm *VM) valueLength(v Value) Value {
	switch v.Kind {
	case KindArray:
		return Int(int32(len(v.Obj.AsArray().Elements)))
	case KindMap:
		return Int(int32(len(v.Obj.AsMap().Items)))
	case KindBuffer:
		return Int(int32(v.Obj.AsBuffer().Count))
	case KindString:
		return Int(int32(len(vm.Pool.Content(v))))
	}
	return Int(0)
}

// iterNext/iterValue implement OP_ITER_NEXT/OP_ITER_VALUE. Iteration
// position is tracked per container identity in vm.iterCursors rather than
// on Array/Map themselves, so loops over two different containers never
// collide; two nested loops over the same container share one position.
func (vm *VM) iterNext(container Value) bool {
	if vm.iterCursors == nil {
		vm.iterCursors = make(map[*Obj]int)
	}
	cur := vm.iterCursors[container.Obj]
	if cur >= int(vm.valueLength(container).AsIntCoerced()) {
		delete(vm.iterCursors, container.Obj)
		return false
	}
	vm.iterCursors[container.Obj] = cur + 1
	return true
}

func (vm *VM) iterValue(container Value) Value {
	cur := vm.iterCursors[container.Obj] - 1
	if cur < 0 {
		return Nil
	}
	switch container.Kind {
	case KindArray:
		return container.Obj.AsArray().Elements[cur]
	case KindMap:
		return vm.mapKeyValues(container.Obj.AsMap(), true)[cur]
	}
	return Nil
}
