package bytecode

import (
	"fmt"
	"strings"

	"github.com/kr/pretty"
	"github.com/kr/text"
)

// Dump renders a chunk as one mnemonic-plus-operands line per instruction,
// for diagnostics only (BU_ENABLE_BYTECODE_DUMP) -- never a persisted
// format. Constant-pool values are rendered with kr/pretty (function protos
// as <fn name/arity>); each closure upvalue descriptor gets its own line,
// indented with kr/text under its OpClosure instruction.
func Dump(c *Chunk) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", c.Name)
	offset := 0
	for offset < len(c.Code) {
		offset = dumpInstruction(&sb, c, offset)
	}
	return sb.String()
}

func dumpInstruction(sb *strings.Builder, c *Chunk, offset int) int {
	op := OpCode(c.Code[offset])
	line := c.DebugInfoAt(offset).Line
	fmt.Fprintf(sb, "%04d %4d  %-14s", offset, line, op.Name())

	switch op {
	case OpConstant, OpGetGlobal, OpSetGlobal, OpDefineGlobal, OpGetProperty,
		OpSetProperty, OpInvoke, OpClosure, OpProc:
		idx := ReadU16(c.Code, offset+1)
		sb.WriteString(" ")
		sb.WriteString(constantRepr(c, int(idx)))
		next := offset + 3
		if op == OpClosure {
			return dumpClosureUpvalues(sb, c, next)
		}
		if op == OpInvoke || op == OpProc {
			argc := c.Code[next]
			fmt.Fprintf(sb, " (argc=%d)\n", argc)
			return next + 1
		}
		sb.WriteString("\n")
		return next
	case OpSuperInvoke:
		owner := ReadU16(c.Code, offset+1)
		method := ReadU16(c.Code, offset+3)
		argc := c.Code[offset+5]
		fmt.Fprintf(sb, " owner=%s method=%s argc=%d\n",
			constantRepr(c, int(owner)), constantRepr(c, int(method)), argc)
		return offset + 6
	case OpGetLocal, OpSetLocal, OpGetPrivate, OpSetPrivate, OpCall,
		OpReturnN, OpPrint, OpDiscard, OpGetUpvalue, OpSetUpvalue, OpArrayPush:
		fmt.Fprintf(sb, " %d\n", c.Code[offset+1])
		return offset + 2
	case OpDefineArray, OpDefineMap:
		fmt.Fprintf(sb, " %d\n", ReadU16(c.Code, offset+1))
		return offset + 3
	case OpJump, OpJumpIfFalse, OpLoop:
		fmt.Fprintf(sb, " -> %d\n", ReadU16(c.Code, offset+1))
		return offset + 3
	case OpGosub:
		fmt.Fprintf(sb, " -> %d\n", ReadI16(c.Code, offset+1))
		return offset + 3
	case OpTry:
		catchIP := ReadU16(c.Code, offset+1)
		finallyIP := ReadU16(c.Code, offset+3)
		fmt.Fprintf(sb, " catch=%d finally=%d\n", catchIP, finallyIP)
		return offset + 5
	case OpNewBuffer:
		elemType := ReadU16(c.Code, offset+1)
		count := ReadU32(c.Code, offset+3)
		fmt.Fprintf(sb, " type=%d count=%d\n", elemType, count)
		return offset + 7
	default:
		sb.WriteString("\n")
		return offset + 1
	}
}

func dumpClosureUpvalues(sb *strings.Builder, c *Chunk, offset int) int {
	count := int(c.Code[offset])
	offset++
	sb.WriteString("\n")
	for i := 0; i < count; i++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(sb, "%s\n", text.Indent(fmt.Sprintf("| %s %d", kind, index), "      "))
		offset += 2
	}
	return offset
}

func constantRepr(c *Chunk, idx int) string {
	if idx < 0 || idx >= len(c.Constants) {
		return "?"
	}
	switch v := c.Constants[idx].(type) {
	case *FunctionProto:
		return fmt.Sprintf("<fn %s/%d>", v.Name, v.Arity)
	default:
		return fmt.Sprintf("%# v", pretty.Formatter(v))
	}
}
