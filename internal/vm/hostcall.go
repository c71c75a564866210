package vm

// CallSync invokes callee with args on p and drives the interpreter
// re-entrantly until the call resolves, returning its result synchronously.
// This is the mechanism internal/host's callFunction/callMethod build on to
// call back into script from native code without disturbing p's existing
// call stack (spec §4.9, the CALL_RETURN re-entrancy boundary).
//
// p is usually the VM's main process, but any live process works: the
// pushed callee+args become a new frame on top of whatever that process was
// already doing, and stopOnCallReturn unwinds exactly back to that point.
func (vm *VM) CallSync(p *Process, callee Value, args []Value) (Value, *DuskError) {
	return vm.runBoundary(p, func() (callOutcome, *DuskError) {
		p.push(callee)
		for _, a := range args {
			p.push(a)
		}
		return vm.callValue(p, callee, len(args))
	})
}

// InvokeSync calls a method by name on receiver, the re-entrant counterpart
// of OP_INVOKE (spec §4.6, §4.9).
func (vm *VM) InvokeSync(p *Process, receiver Value, method string, args []Value) (Value, *DuskError) {
	return vm.runBoundary(p, func() (callOutcome, *DuskError) {
		p.push(receiver)
		for _, a := range args {
			p.push(a)
		}
		return vm.invoke(p, method, len(args))
	})
}

// runBoundary sets up a fresh stopOnCallReturn boundary at p's current frame
// depth, runs dispatch through to fn, and -- if fn pushed a real script
// frame rather than resolving synchronously -- keeps driving RunProcess
// until the interpreter unwinds back across that boundary. The previous
// boundary (if p was already re-entrant, i.e. a native call calling back
// into script which calls back out to a native again) is restored before
// returning, so nested CallSync/InvokeSync calls compose correctly.
func (vm *VM) runBoundary(p *Process, dispatch func() (callOutcome, *DuskError)) (Value, *DuskError) {
	savedStop := p.stopOnCallReturn
	savedBoundary := p.boundaryFrameCount
	defer func() {
		p.stopOnCallReturn = savedStop
		p.boundaryFrameCount = savedBoundary
	}()

	p.boundaryFrameCount = p.frameCount
	p.stopOnCallReturn = true

	outcome, err := dispatch()
	if err != nil {
		return Nil, err
	}
	if outcome == callContinue {
		result, rerr := vm.RunProcess(p)
		if rerr != nil {
			return Nil, rerr
		}
		if result == ResultError {
			return Nil, vm.lastError
		}
	}
	return p.pop(), nil
}

// SpawnAndRun spawns def and, if it produced a schedulable script process
// (as opposed to a RegisterNativeProcess def that already ran to completion
// in spawnProcess), drives it to exit before returning -- the re-entrant
// "callProcess" embedders use when they want spawn+run-to-completion as one
// blocking call instead of cooperating with the scheduler's own Tick loop
// (spec §4.9).
func (vm *VM) SpawnAndRun(def *ProcessDef, args []Value) (int64, *DuskError) {
	pv, err := vm.spawnProcess(def, args, nil)
	if err != nil {
		return 0, err
	}
	p := pv.Obj.Payload.(*Process)
	for p.State == StateRunning {
		result, rerr := vm.RunProcess(p)
		if rerr != nil {
			return 0, rerr
		}
		if result == ResultError {
			p.State = StateDead
			vm.notifyDestroyed(p)
			return 0, vm.lastError
		}
		if result == ResultExited {
			p.State = StateDead
			vm.notifyDestroyed(p)
			break
		}
		// ResultYielded: a FRAME opcode ticked; keep driving since the host
		// asked to run this process to completion synchronously.
	}
	return p.exitCode, nil
}
