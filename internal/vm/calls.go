package vm

import "strconv"

// callOutcome tells the interpreter loop what happened after dispatching a
// CALL: did it push a new script frame to keep running (continue dispatch
// in the callee), or did it fully resolve synchronously (native/struct/
// etc.) so the loop should just keep going at the same frame depth.
type callOutcome int

const (
	callContinue callOutcome = iota // a new frame was pushed; keep dispatching
	callDone                        // resolved synchronously; result already on stack
)

// callValue implements spec §4.6's "CALL semantics by callee kind" table.
// callee occupies stack slot stackTop-argCount-1 before the call; the
// frame's slot 0 convention (callee or self) is preserved by every branch.
func (vm *VM) callValue(proc *Process, callee Value, argCount int) (callOutcome, *DuskError) {
	switch callee.Kind {
	case KindFunction:
		return vm.callScriptFunction(proc, callee.Obj.AsFunction(), nil, argCount)
	case KindClosure:
		cl := callee.Obj.AsClosure()
		return vm.callScriptFunction(proc, cl.Function, cl, argCount)
	case KindNativeFunction:
		return vm.callNativeFunction(proc, callee.Obj.AsNativeFunction(), argCount)
	case KindModuleRef:
		modID, funcID := callee.ModuleRef()
		m := vm.moduleByID(int(modID))
		if m == nil || int(funcID) >= len(m.Functions) {
			return callDone, NewFatalErrorValue("invalid module function reference")
		}
		return vm.callNativeFunction(proc, m.Functions[funcID], argCount)
	case KindProcessBlueprint:
		return vm.resolveCall(proc, argCount, func(args []Value) (Value, *DuskError) {
			return vm.spawnProcess(callee.Obj.Payload.(*ProcessDef), args, proc)
		})
	case KindStructBlueprint:
		return vm.resolveCall(proc, argCount, func(args []Value) (Value, *DuskError) {
			return vm.NewStructInstance(callee.Obj.AsStructBlueprint(), args), nil
		})
	case KindClassBlueprint:
		return vm.callClassConstructor(proc, callee.Obj.AsClassBlueprint(), argCount)
	case KindNativeClass:
		return vm.resolveCall(proc, argCount, func(args []Value) (Value, *DuskError) {
			return vm.constructNativeClass(callee.Obj.AsNativeClass(), args)
		})
	case KindNativeStruct:
		return vm.resolveCall(proc, argCount, func(args []Value) (Value, *DuskError) {
			return vm.constructNativeStruct(callee.Obj.AsNativeStruct(), args)
		})
	default:
		return callDone, NewFatalErrorValue("value is not callable: " + callee.Kind.String())
	}
}

// resolveCall is a helper for callee kinds that resolve synchronously: it
// collects argCount arguments off the stack (below the callee slot),
// invokes fn, pops the callee+args, and pushes fn's single result.
func (vm *VM) resolveCall(proc *Process, argCount int, fn func(args []Value) (Value, *DuskError)) (callOutcome, *DuskError) {
	args := make([]Value, argCount)
	copy(args, proc.stack[proc.stackTop-argCount:proc.stackTop])
	proc.stackTop -= argCount + 1 // pop args and callee
	result, err := fn(args)
	if err != nil {
		return callDone, err
	}
	proc.push(result)
	return callDone, nil
}

func (vm *VM) callScriptFunction(proc *Process, fn *Function, closure *Closure, argCount int) (callOutcome, *DuskError) {
	if fn.Arity >= 0 && argCount != fn.Arity {
		return callDone, NewRuntimeErrorValue("expected " + itoa(fn.Arity) + " arguments but got " + itoa(argCount))
	}
	if proc.frameCount >= callFrameCapacity {
		return callDone, NewFatalErrorValue("stack overflow")
	}
	proc.frames[proc.frameCount] = CallFrame{
		Function: fn,
		Closure:  closure,
		IP:       0,
		Slots:    proc.stackTop - argCount - 1,
	}
	proc.frameCount++
	return callContinue, nil
}

func (vm *VM) callNativeFunction(proc *Process, nf *NativeFunction, argCount int) (callOutcome, *DuskError) {
	if nf.Arity >= 0 && argCount != nf.Arity {
		return callDone, NewRuntimeErrorValue(nf.Name + ": expected " + itoa(nf.Arity) + " arguments but got " + itoa(argCount))
	}
	args := make([]Value, argCount)
	copy(args, proc.stack[proc.stackTop-argCount:proc.stackTop])
	proc.stackTop -= argCount + 1
	result, err := nf.Fn(vm, args)
	if err != nil {
		return callDone, err
	}
	proc.push(result)
	return callDone, nil
}

// callClassConstructor builds a class instance, runs the native-superclass
// constructor chain if any, then invokes `init` as a normal frame call with
// the instance as slot 0 (spec §4.6).
func (vm *VM) callClassConstructor(proc *Process, bp *ClassBlueprint, argCount int) (callOutcome, *DuskError) {
	args := make([]Value, argCount)
	copy(args, proc.stack[proc.stackTop-argCount:proc.stackTop])
	proc.stackTop -= argCount + 1

	inst := &ClassInstance{Blueprint: bp, Fields: make([]Value, len(bp.FieldNames))}
	for i := range inst.Fields {
		inst.Fields[i] = bp.FieldDefaults[i]
	}
	o := vm.Heap.alloc(ObjClassInstance, inst, 32+len(inst.Fields)*8)
	instVal := Value{Kind: KindClassInstance, Obj: o}

	if bp.NativeSuper != nil {
		userData, err := bp.NativeSuper.Ctor(vm, args)
		if err != nil {
			return callDone, err
		}
		inst.NativeData = userData
	}

	if initFn, nativeInit, ok := bp.ResolveMethod("init"); ok {
		if initFn != nil {
			proc.push(instVal)
			for _, a := range args {
				proc.push(a)
			}
			return vm.callScriptFunction(proc, initFn, nil, len(args))
		}
		if _, err := nativeInit.Fn(vm, inst.NativeData, args); err != nil {
			return callDone, err
		}
	}

	proc.push(instVal)
	return callDone, nil
}

func (vm *VM) constructNativeClass(nc *NativeClass, args []Value) (Value, *DuskError) {
	userData, err := nc.Ctor(vm, args)
	if err != nil {
		return Nil, err
	}
	inst := &NativeClassInstance{Class: nc, UserData: userData}
	o := vm.Heap.alloc(ObjNativeClassInstance, inst, 24)
	return Value{Kind: KindNativeClassInstance, Obj: o}, nil
}

func (vm *VM) constructNativeStruct(ns *NativeStruct, args []Value) (Value, *DuskError) {
	data := make([]byte, ns.Size)
	if ns.Ctor != nil {
		if err := ns.Ctor(vm, data, args); err != nil {
			return Nil, err
		}
	}
	inst := &NativeStructInstance{Def: ns, Data: data}
	o := vm.Heap.alloc(ObjNativeStructInstance, inst, ns.Size+16)
	return Value{Kind: KindNativeStructInstance, Obj: o}, nil
}

// --- Property access (spec §4.6 "Property access") -------------------------

func (vm *VM) getProperty(proc *Process, receiver Value, name string) (Value, *DuskError) {
	switch receiver.Kind {
	case KindString:
		if name == "length" {
			return Int(int32(len(vm.Pool.Content(receiver)))), nil
		}
		return Nil, NewRuntimeErrorValue("unknown string property: " + name)
	case KindProcess:
		p := receiver.Obj.Payload.(*Process)
		idx, ok := PrivateIndexByName(name)
		if !ok {
			return Nil, NewRuntimeErrorValue("unknown process property: " + name)
		}
		if p.State == StateDead {
			return Nil, nil
		}
		return p.Privates[idx], nil
	case KindStructInstance:
		inst := receiver.Obj.AsStructInstance()
		idx, ok := inst.Blueprint.FieldIndex[name]
		if !ok {
			return Nil, NewRuntimeErrorValue("unknown field: " + name)
		}
		return inst.Fields[idx], nil
	case KindClassInstance:
		inst := receiver.Obj.AsClassInstance()
		if idx, ok := inst.Blueprint.FieldIndex[name]; ok {
			return inst.Fields[idx], nil
		}
		if inst.Blueprint.NativeSuper != nil {
			if prop, ok := inst.Blueprint.NativeSuper.Properties[name]; ok {
				return prop.Getter(vm, inst.NativeData)
			}
		}
		return Nil, NewRuntimeErrorValue("unknown property: " + name)
	case KindNativeClassInstance:
		inst := receiver.Obj.AsNativeClassInstance()
		if prop, ok := inst.Class.Properties[name]; ok {
			return prop.Getter(vm, inst.UserData)
		}
		return Nil, NewRuntimeErrorValue("unknown native property: " + name)
	case KindNativeStructInstance:
		inst := receiver.Obj.AsNativeStructInstance()
		if f, ok := inst.Def.Fields[name]; ok {
			return inst.ReadField(f), nil
		}
		return Nil, NewRuntimeErrorValue("unknown native struct field: " + name)
	case KindMap:
		m := receiver.Obj.AsMap()
		v, ok := m.Items[name]
		if !ok {
			return Nil, NewRuntimeErrorValue("key not found: " + name)
		}
		return v, nil
	}
	return Nil, NewRuntimeErrorValue("cannot read property of " + receiver.Kind.String())
}

func (vm *VM) setProperty(receiver Value, name string, val Value) *DuskError {
	switch receiver.Kind {
	case KindProcess:
		p := receiver.Obj.Payload.(*Process)
		idx, ok := PrivateIndexByName(name)
		if !ok {
			return NewRuntimeErrorValue("unknown process property: " + name)
		}
		if readOnlyPrivates[idx] {
			return nil // silently ignored per spec §4.6
		}
		if p.State == StateDead {
			return nil
		}
		p.Privates[idx] = val
		return nil
	case KindStructInstance:
		inst := receiver.Obj.AsStructInstance()
		idx, ok := inst.Blueprint.FieldIndex[name]
		if !ok {
			return NewRuntimeErrorValue("unknown field: " + name)
		}
		inst.Fields[idx] = val
		return nil
	case KindClassInstance:
		inst := receiver.Obj.AsClassInstance()
		if idx, ok := inst.Blueprint.FieldIndex[name]; ok {
			inst.Fields[idx] = val
			return nil
		}
		if inst.Blueprint.NativeSuper != nil {
			if prop, ok := inst.Blueprint.NativeSuper.Properties[name]; ok && prop.Setter != nil {
				return prop.Setter(vm, inst.NativeData, val)
			}
		}
		return NewRuntimeErrorValue("unknown property: " + name)
	case KindNativeClassInstance:
		inst := receiver.Obj.AsNativeClassInstance()
		if prop, ok := inst.Class.Properties[name]; ok && prop.Setter != nil {
			return prop.Setter(vm, inst.UserData, val)
		}
		return NewRuntimeErrorValue("unknown or read-only native property: " + name)
	case KindNativeStructInstance:
		inst := receiver.Obj.AsNativeStructInstance()
		f, ok := inst.Def.Fields[name]
		if !ok || f.ReadOnly {
			return NewRuntimeErrorValue("unknown or read-only native struct field: " + name)
		}
		inst.WriteField(f, val)
		return nil
	case KindMap:
		m := receiver.Obj.AsMap()
		if val.Kind == KindNil {
			delete(m.Items, name)
		} else {
			m.Items[name] = val
		}
		return nil
	}
	return NewRuntimeErrorValue("cannot set property of " + receiver.Kind.String())
}

// --- Index access (spec §4.6 "Index access") --------------------------------

func (vm *VM) getIndex(receiver, index Value) (Value, *DuskError) {
	switch receiver.Kind {
	case KindArray:
		arr := receiver.Obj.AsArray()
		i := int(index.AsIntCoerced())
		if i < 0 {
			i += len(arr.Elements)
		}
		if i < 0 || i >= len(arr.Elements) {
			return Nil, NewRuntimeErrorValue("array index out of range")
		}
		return arr.Elements[i], nil
	case KindMap:
		m := receiver.Obj.AsMap()
		key := vm.Pool.Content(index)
		v, ok := m.Items[key]
		if !ok {
			return Nil, nil
		}
		return v, nil
	case KindBuffer:
		buf := receiver.Obj.AsBuffer()
		i := int(index.AsIntCoerced())
		if i < 0 || i >= buf.Count {
			return Nil, NewRuntimeErrorValue("buffer index out of range")
		}
		return readBufferElem(buf, i), nil
	case KindString:
		v, ok := vm.Pool.At(receiver, int(index.AsIntCoerced()))
		if !ok {
			return Nil, NewRuntimeErrorValue("string index out of range")
		}
		return v, nil
	}
	return Nil, NewRuntimeErrorValue("cannot index " + receiver.Kind.String())
}

func (vm *VM) setIndex(receiver, index, val Value) *DuskError {
	switch receiver.Kind {
	case KindArray:
		arr := receiver.Obj.AsArray()
		i := int(index.AsIntCoerced())
		if i < 0 {
			i += len(arr.Elements)
		}
		if i < 0 || i >= len(arr.Elements) {
			return NewRuntimeErrorValue("array index out of range")
		}
		arr.Elements[i] = val
		return nil
	case KindMap:
		m := receiver.Obj.AsMap()
		key := vm.Pool.Content(index)
		if val.Kind == KindNil {
			delete(m.Items, key)
		} else {
			m.Items[key] = val
		}
		return nil
	case KindBuffer:
		buf := receiver.Obj.AsBuffer()
		i := int(index.AsIntCoerced())
		if i < 0 || i >= buf.Count {
			return NewRuntimeErrorValue("buffer index out of range")
		}
		writeBufferElem(buf, i, val)
		return nil
	}
	return NewRuntimeErrorValue("cannot index-assign " + receiver.Kind.String())
}

func itoa(n int) string { return strconv.Itoa(n) }
