package vm

import (
	"duskvm/internal/bytecode"
	"math"
)

// ProcessResult tells the scheduler why run_process returned control (spec
// §4.6/§4.7/§4.9). Grounded on sentra/internal/vm/vm.go's run-loop exit
// codes, generalized to the four-state process model.
type ProcessResult int

const (
	ResultYielded    ProcessResult = iota // hit OP_FRAME: one tick elapsed
	ResultExited                          // hit OP_EXIT or fell off the root frame
	ResultCallReturn                      // stopOnCallReturn boundary reached (spec §4.9)
	ResultError                           // an exception propagated past the outermost frame
)

// RunProcess executes p until it yields, exits, hits the re-entrancy
// boundary, or an uncaught exception escapes (spec §4.6's opcode dispatch
// table drives this loop; §4.8 governs exception unwinding; §4.9 governs
// the stopOnCallReturn boundary host callbacks rely on).
func (vm *VM) RunProcess(p *Process) (ProcessResult, *DuskError) {
	for {
		frame := p.currentFrame()
		chunk := frame.Function.Proto.Chunk
		code := chunk.Code

		op := bytecode.OpCode(code[frame.IP])
		frame.IP++

		switch op {
		case bytecode.OpConstant:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			p.push(vm.constantValue(chunk, idx))

		case bytecode.OpNil:
			p.push(Nil)
		case bytecode.OpTrue:
			p.push(Bool(true))
		case bytecode.OpFalse:
			p.push(Bool(false))
		case bytecode.OpPop:
			p.pop()
		case bytecode.OpDup:
			p.push(p.peek(0))
		case bytecode.OpHalt:
			return ResultExited, nil

		case bytecode.OpNot:
			v := p.pop()
			p.push(Bool(!v.IsTruthy()))
		case bytecode.OpNegate:
			v := p.pop()
			if !v.IsNumeric() {
				if res, done := vm.raise(p, NewRuntimeErrorValue("cannot negate "+v.Kind.String())); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(vm.performNegate(v))

		case bytecode.OpAdd:
			b, a := p.pop(), p.pop()
			p.push(vm.performAdd(a, b))
		case bytecode.OpSub:
			b, a := p.pop(), p.pop()
			p.push(vm.performSub(a, b))
		case bytecode.OpMul:
			b, a := p.pop(), p.pop()
			p.push(vm.performMul(a, b))
		case bytecode.OpDiv:
			b, a := p.pop(), p.pop()
			r, err := vm.performDiv(a, b)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(r)
		case bytecode.OpMod:
			b, a := p.pop(), p.pop()
			r, err := vm.performMod(a, b)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(r)
		case bytecode.OpEqual:
			b, a := p.pop(), p.pop()
			p.push(Bool(ValuesEqual(a, b)))
		case bytecode.OpNotEqual:
			b, a := p.pop(), p.pop()
			p.push(Bool(!ValuesEqual(a, b)))
		case bytecode.OpGreater:
			b, a := p.pop(), p.pop()
			p.push(Bool(vm.performGreater(a, b)))
		case bytecode.OpLess:
			b, a := p.pop(), p.pop()
			p.push(Bool(vm.performLess(a, b)))
		case bytecode.OpGreaterEqual:
			b, a := p.pop(), p.pop()
			p.push(Bool(vm.performGreaterEqual(a, b)))
		case bytecode.OpLessEqual:
			b, a := p.pop(), p.pop()
			p.push(Bool(vm.performLessEqual(a, b)))
		case bytecode.OpBitAnd:
			b, a := p.pop(), p.pop()
			p.push(vm.performBitOp(a, b, func(x, y int64) int64 { return x & y }))
		case bytecode.OpBitOr:
			b, a := p.pop(), p.pop()
			p.push(vm.performBitOp(a, b, func(x, y int64) int64 { return x | y }))
		case bytecode.OpBitXor:
			b, a := p.pop(), p.pop()
			p.push(vm.performBitOp(a, b, func(x, y int64) int64 { return x ^ y }))
		case bytecode.OpShl:
			b, a := p.pop(), p.pop()
			p.push(vm.performBitOp(a, b, func(x, y int64) int64 { return x << uint(y) }))
		case bytecode.OpShr:
			b, a := p.pop(), p.pop()
			p.push(vm.performBitOp(a, b, func(x, y int64) int64 { return x >> uint(y) }))

		case bytecode.OpGetLocal:
			slot := int(code[frame.IP])
			frame.IP++
			p.push(p.stack[frame.Slots+slot])
		case bytecode.OpSetLocal:
			slot := int(code[frame.IP])
			frame.IP++
			p.stack[frame.Slots+slot] = p.peek(0)

		case bytecode.OpGetGlobal:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			p.push(vm.GetGlobalIndex(idx))
		case bytecode.OpSetGlobal:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			vm.SetGlobalIndex(idx, p.peek(0))
		case bytecode.OpDefineGlobal:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			if idx >= len(vm.globals) {
				vm.globals = append(vm.globals, make([]Value, idx-len(vm.globals)+1)...)
			}
			vm.globals[idx] = p.pop()

		case bytecode.OpGetPrivate:
			slot := int(code[frame.IP])
			frame.IP++
			p.push(p.Privates[slot])
		case bytecode.OpSetPrivate:
			slot := int(code[frame.IP])
			frame.IP++
			if !readOnlyPrivates[slot] {
				p.Privates[slot] = p.peek(0)
			}

		case bytecode.OpJump:
			off := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2 + off
		case bytecode.OpJumpIfFalse:
			off := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			if !p.peek(0).IsTruthy() {
				frame.IP += off
			}
		case bytecode.OpLoop:
			off := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2 - off

		case bytecode.OpGosub:
			off := int(bytecode.ReadI16(code, frame.IP))
			frame.IP += 2
			p.gosubStack[p.gosubTop] = frame.IP
			p.gosubTop++
			frame.IP += off
		case bytecode.OpReturnSub:
			p.gosubTop--
			frame.IP = p.gosubStack[p.gosubTop]

		case bytecode.OpCall:
			argCount := int(code[frame.IP])
			frame.IP++
			callee := p.peek(argCount)
			outcome, err := vm.callValue(p, callee, argCount)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			if outcome == callDone && p.stopOnCallReturn && p.frameCount == p.boundaryFrameCount {
				return ResultCallReturn, nil
			}

		case bytecode.OpReturn:
			result := p.pop()
			if res, done := vm.returnThroughHandlers(p, result); done {
				return res, nil
			}
		case bytecode.OpReturnN:
			n := int(code[frame.IP])
			frame.IP++
			result := p.pop()
			p.stackTop -= n
			if res, done := vm.returnThroughHandlers(p, result); done {
				return res, nil
			}

		case bytecode.OpDefineArray:
			n := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			elems := make([]Value, n)
			copy(elems, p.stack[p.stackTop-n:p.stackTop])
			p.stackTop -= n
			p.push(vm.NewArray(elems))
		case bytecode.OpDefineMap:
			n := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			mv := vm.NewMap()
			m := mv.Obj.AsMap()
			base := p.stackTop - n*2
			for i := 0; i < n; i++ {
				k := p.stack[base+i*2]
				v := p.stack[base+i*2+1]
				m.Items[vm.Pool.Content(k)] = v
			}
			p.stackTop = base
			p.push(mv)

		case bytecode.OpGetProperty:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			name := vm.Pool.Content(vm.constantValue(chunk, idx))
			recv := p.pop()
			v, err := vm.getProperty(p, recv, name)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(v)
		case bytecode.OpSetProperty:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			name := vm.Pool.Content(vm.constantValue(chunk, idx))
			val := p.pop()
			recv := p.pop()
			if err := vm.setProperty(recv, name, val); err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(val)
		case bytecode.OpGetIndex:
			index := p.pop()
			recv := p.pop()
			v, err := vm.getIndex(recv, index)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(v)
		case bytecode.OpSetIndex:
			val := p.pop()
			index := p.pop()
			recv := p.pop()
			if err := vm.setIndex(recv, index, val); err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(val)

		case bytecode.OpInvoke:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			argCount := int(code[frame.IP])
			frame.IP++
			name := vm.Pool.Content(vm.constantValue(chunk, idx))
			outcome, err := vm.invoke(p, name, argCount)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			if outcome == callDone && p.stopOnCallReturn && p.frameCount == p.boundaryFrameCount {
				return ResultCallReturn, nil
			}
		case bytecode.OpSuperInvoke:
			classIdx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			methodIdx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			argCount := int(code[frame.IP])
			frame.IP++
			className := vm.Pool.Content(vm.constantValue(chunk, classIdx))
			methodName := vm.Pool.Content(vm.constantValue(chunk, methodIdx))
			outcome, err := vm.superInvoke(p, className, methodName, argCount)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			if outcome == callDone && p.stopOnCallReturn && p.frameCount == p.boundaryFrameCount {
				return ResultCallReturn, nil
			}

		case bytecode.OpArrayPush:
			val := p.pop()
			recv := p.pop()
			if recv.Kind != KindArray {
				if res, done := vm.raise(p, NewRuntimeErrorValue("push target is not an array")); done {
					return res, vm.lastError
				}
				continue
			}
			arr := recv.Obj.AsArray()
			arr.Elements = append(arr.Elements, val)

		case bytecode.OpFrame:
			p.pop() // the yielded value is informational only; CORE's cooperative
			// scheduler advances one tick per FRAME regardless of its payload
			return ResultYielded, nil
		case bytecode.OpExit:
			v := p.pop()
			p.exitCode = v.AsIntCoerced()
			return ResultExited, nil

		case bytecode.OpTry:
			catchIP := bytecode.ReadU16(code, frame.IP)
			finallyIP := bytecode.ReadU16(code, frame.IP+2)
			frame.IP += 4
			h := TryHandler{StackRestore: p.stackTop, FrameDepth: p.frameCount}
			if catchIP != 0xFFFF {
				h.HasCatch = true
				h.CatchIP = int(catchIP)
			}
			if finallyIP != 0xFFFF {
				h.HasFinally = true
				h.FinallyIP = int(finallyIP)
			}
			p.tryHandlers = append(p.tryHandlers, h)
		case bytecode.OpPopTry:
			p.tryHandlers = p.tryHandlers[:len(p.tryHandlers)-1]
		case bytecode.OpThrow:
			v := p.pop()
			err := vm.valueToDuskError(v)
			if res, done := vm.raise(p, err); done {
				return res, vm.lastError
			}
		case bytecode.OpEnterCatch:
			h := &p.tryHandlers[len(p.tryHandlers)-1]
			p.push(h.PendingError)
			h.HasPending = false
			h.CatchConsumed = true
		case bytecode.OpEnterFinally:
			p.tryHandlers[len(p.tryHandlers)-1].InFinally = true
		case bytecode.OpExitFinally:
			if res, done := vm.exitFinally(p); done {
				return res, nil
			}

		case bytecode.OpClosure:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			proto := chunk.Constants[idx].(*bytecode.FunctionProto)
			upCount := int(code[frame.IP])
			frame.IP++
			fn := vm.NewFunction(proto.Name, proto)
			ups := make([]*Upvalue, upCount)
			for i := 0; i < upCount; i++ {
				isLocal := code[frame.IP] != 0
				index := int(code[frame.IP+1])
				frame.IP += 2
				if isLocal {
					ups[i] = vm.captureUpvalue(frame, p, frame.Slots+index)
				} else {
					ups[i] = frame.Closure.Upvalues[index]
				}
			}
			p.push(vm.NewClosure(fn, ups))
		case bytecode.OpGetUpvalue:
			idx := int(code[frame.IP])
			frame.IP++
			p.push(frame.Closure.Upvalues[idx].Get())
		case bytecode.OpSetUpvalue:
			idx := int(code[frame.IP])
			frame.IP++
			frame.Closure.Upvalues[idx].Set(p.peek(0))
		case bytecode.OpCloseUpvalue:
			closeFrameUpvalues(frame, p.stackTop-1)
			p.pop()

		case bytecode.OpNewBuffer:
			typeIdx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			count := int(bytecode.ReadU32(code, frame.IP))
			frame.IP += 4
			elemType := BufferElemType(chunk.Constants[typeIdx].(int64))
			p.push(vm.NewBuffer(elemType, count))
		case bytecode.OpFree:
			p.pop() // reclamation happens at the next GC cycle; spec §4.3 note
		case bytecode.OpClock:
			p.push(Float64(vmClockSeconds()))

		case bytecode.OpSin, bytecode.OpCos, bytecode.OpTan, bytecode.OpAsin,
			bytecode.OpAcos, bytecode.OpAtan, bytecode.OpSqrt, bytecode.OpAbs,
			bytecode.OpFloor, bytecode.OpCeil, bytecode.OpRound, bytecode.OpLog,
			bytecode.OpExp:
			v := p.pop().AsDoubleCoerced()
			p.push(Float64(mathUnary(op, v)))
		case bytecode.OpAtan2:
			b, a := p.pop().AsDoubleCoerced(), p.pop().AsDoubleCoerced()
			p.push(Float64(math.Atan2(a, b)))
		case bytecode.OpPow:
			b, a := p.pop().AsDoubleCoerced(), p.pop().AsDoubleCoerced()
			p.push(Float64(math.Pow(a, b)))

		case bytecode.OpPrint:
			argCount := int(code[frame.IP])
			frame.IP++
			args := make([]Value, argCount)
			copy(args, p.stack[p.stackTop-argCount:p.stackTop])
			p.stackTop -= argCount
			vm.hostPrint(args)
		case bytecode.OpFuncLen:
			v := p.pop()
			p.push(vm.valueLength(v))

		case bytecode.OpIterNext:
			hasMore := vm.iterNext(p.peek(0))
			p.push(Bool(hasMore))
		case bytecode.OpIterValue:
			v := vm.iterValue(p.peek(0))
			p.push(v)

		case bytecode.OpCopy2:
			a, b := p.peek(1), p.peek(0)
			p.push(a)
			p.push(b)
		case bytecode.OpSwap:
			p.stack[p.stackTop-1], p.stack[p.stackTop-2] = p.stack[p.stackTop-2], p.stack[p.stackTop-1]
		case bytecode.OpDiscard:
			n := int(code[frame.IP])
			frame.IP++
			p.stackTop -= n
		case bytecode.OpType:
			v := p.pop()
			p.push(vm.Pool.Create(v.Kind.String()))
		case bytecode.OpProc:
			idx := int(bytecode.ReadU16(code, frame.IP))
			frame.IP += 2
			argCount := int(code[frame.IP])
			frame.IP++
			name := vm.Pool.Content(vm.constantValue(chunk, idx))
			defIdx, ok := vm.processByName[name]
			if !ok {
				if res, done := vm.raise(p, NewRuntimeErrorValue("unknown process: "+name)); done {
					return res, vm.lastError
				}
				continue
			}
			args := make([]Value, argCount)
			copy(args, p.stack[p.stackTop-argCount:p.stackTop])
			p.stackTop -= argCount
			result, err := vm.spawnProcess(vm.processDefs[defIdx], args, p)
			if err != nil {
				if res, done := vm.raise(p, err); done {
					return res, vm.lastError
				}
				continue
			}
			p.push(result)
		case bytecode.OpGetID:
			v := p.peek(0)
			p.pop()
			if v.Kind == KindProcess {
				p.push(Int(int32(v.Obj.Payload.(*Process).ID)))
			} else {
				p.push(Nil)
			}

		case bytecode.OpReservedFiber:
			if res, done := vm.raise(p, NewFatalErrorValue("RESERVED_41 (legacy fiber opcode) is not supported")); done {
				return res, vm.lastError
			}

		default:
			if res, done := vm.raise(p, NewFatalErrorValue("unknown opcode")); done {
				return res, vm.lastError
			}
		}
	}
}

// constantValue converts a chunk constant to a tagged Value each time an
// instruction reads it; the result is not cached.
// Constants stay untyped interface{} in bytecode.Chunk (it cannot import
// this package); duskvm performs the conversion lazily here rather than
// eagerly at load time, since most constant slots (string/number literals)
// are cheap to convert and function-proto slots never go through this path.
func (vm *VM) constantValue(chunk *bytecode.Chunk, idx int) Value {
	switch c := chunk.Constants[idx].(type) {
	case nil:
		return Nil
	case bool:
		return Bool(c)
	case int64:
		return Int(int32(c))
	case float64:
		return Float64(c)
	case string:
		return vm.Pool.Create(c)
	}
	return Nil
}

func mathUnary(op bytecode.OpCode, v float64) float64 {
	switch op {
	case bytecode.OpSin:
		return math.Sin(v)
	case bytecode.OpCos:
		return math.Cos(v)
	case bytecode.OpTan:
		return math.Tan(v)
	case bytecode.OpAsin:
		return math.Asin(v)
	case bytecode.OpAcos:
		return math.Acos(v)
	case bytecode.OpAtan:
		return math.Atan(v)
	case bytecode.OpSqrt:
		return math.Sqrt(v)
	case bytecode.OpAbs:
		return math.Abs(v)
	case bytecode.OpFloor:
		return math.Floor(v)
	case bytecode.OpCeil:
		return math.Ceil(v)
	case bytecode.OpRound:
		return math.Round(v)
	case bytecode.OpLog:
		return math.Log(v)
	case bytecode.OpExp:
		return math.Exp(v)
	}
	return v
}

// returnFromFrame pops the current frame, closes any upvalues it opened,
// and restores the caller's stack top beneath the call's result. It reports
// (ResultExited, true) when the root frame of a process returns, and
// (ResultCallReturn, true) when unwinding crosses the stopOnCallReturn
// boundary a host re-entrant call installed (spec §4.9).
func (vm *VM) returnFromFrame(p *Process, result Value) (ProcessResult, bool) {
	frame := p.currentFrame()
	closeFrameUpvalues(frame, frame.Slots)
	calleeSlot := frame.Slots
	p.frameCount--
	p.stackTop = calleeSlot
	p.push(result)

	if p.frameCount == 0 {
		return ResultExited, true
	}
	if p.stopOnCallReturn && p.frameCount == p.boundaryFrameCount {
		return ResultCallReturn, true
	}
	return 0, false
}

func vmClockSeconds() float64 {
	// Wall-clock access belongs to the host embedding, not CORE; duskvm's
	// embeddable core has no monotonic clock dependency of its own, so this
	// stub always reads 0 and hosts override OP_CLOCK's native counterpart
	// via registerNative("clock", ...) when real timing is needed.
	return 0
}
