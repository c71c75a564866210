package vm

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// PooledString is an interned, immutable byte sequence with a cached
// FNV-1a hash and its insertion index (spec §3). Go's string header is
// already a length+read-only-data pair, so unlike the spec's C original
// there is no separate "short string stored inline" representation to
// maintain -- interning alone gives duskvm the identity guarantee spec §3
// requires (create(bytes) returns the same handle for identical content).
type PooledString struct {
	Content string
	Hash    uint64
	Index   int
}

// StringPool interns strings and hands back stable small-integer handles
// (Value.num) rather than pointers, per spec §9's note on pool lifetime:
// since strings are never reclaimed individually, indices avoid
// pointer-stability concerns across growth.
type StringPool struct {
	byContent map[string]int
	strings   []*PooledString
	arena     *Arena
}

func NewStringPool() *StringPool {
	return &StringPool{byContent: make(map[string]int), arena: NewArena()}
}

// fnv1a computes the 64-bit FNV-1a hash spec §4.2 requires.
func fnv1a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// Create interns content, returning the existing handle if already pooled.
func (p *StringPool) Create(content string) Value {
	if idx, ok := p.byContent[content]; ok {
		return Value{Kind: KindString, num: uint64(idx)}
	}
	// Bump-allocate backing storage from the arena to amortize small-string
	// churn, then copy content in -- mirrors spec §4.2 step (b).
	buf := p.arena.Allocate(len(content))
	copy(buf, content)
	copied := string(buf)
	idx := len(p.strings)
	ps := &PooledString{Content: copied, Hash: fnv1a(copied), Index: idx}
	p.strings = append(p.strings, ps)
	p.byContent[copied] = idx
	return Value{Kind: KindString, num: uint64(idx)}
}

func (p *StringPool) Get(v Value) *PooledString {
	return p.strings[int(v.num)]
}

func (p *StringPool) Content(v Value) string {
	return p.strings[int(v.num)].Content
}

// --- Derived string operations (spec §4.2) --------------------------------

func (p *StringPool) Concat(a, b Value) Value {
	return p.Create(p.Content(a) + p.Content(b))
}

func (p *StringPool) Upper(v Value) Value { return p.Create(strings.ToUpper(p.Content(v))) }
func (p *StringPool) Lower(v Value) Value { return p.Create(strings.ToLower(p.Content(v))) }
func (p *StringPool) Trim(v Value) Value  { return p.Create(strings.TrimSpace(p.Content(v))) }

func (p *StringPool) Substring(v Value, start, end int) Value {
	s := p.Content(v)
	start = clampIndex(start, len(s))
	end = clampIndex(end, len(s))
	if start > end {
		start, end = end, start
	}
	return p.Create(s[start:end])
}

func (p *StringPool) Replace(v, old, new Value) Value {
	return p.Create(strings.ReplaceAll(p.Content(v), p.Content(old), p.Content(new)))
}

func (p *StringPool) StartsWith(v, prefix Value) bool {
	return strings.HasPrefix(p.Content(v), p.Content(prefix))
}

func (p *StringPool) EndsWith(v, suffix Value) bool {
	return strings.HasSuffix(p.Content(v), p.Content(suffix))
}

// At returns the single-character string at index i, supporting negative
// indices counting from the end, per spec §3's array-style read rule
// applied uniformly to strings.
func (p *StringPool) At(v Value, i int) (Value, bool) {
	s := p.Content(v)
	if i < 0 {
		i += len(s)
	}
	if i < 0 || i >= len(s) {
		return Nil, false
	}
	return p.Create(string(s[i])), true
}

func (p *StringPool) IndexOf(v, needle Value) int {
	return strings.Index(p.Content(v), p.Content(needle))
}

func (p *StringPool) Repeat(v Value, n int) Value {
	if n < 0 {
		n = 0
	}
	return p.Create(strings.Repeat(p.Content(v), n))
}

func (p *StringPool) Split(v, sep Value) []Value {
	parts := strings.Split(p.Content(v), p.Content(sep))
	out := make([]Value, len(parts))
	for i, part := range parts {
		out[i] = p.Create(part)
	}
	return out
}

func clampIndex(i, length int) int {
	if i < 0 {
		i = 0
	}
	if i > length {
		i = length
	}
	return i
}

// ToString formats any value to a display string per spec §4.2: nil ->
// "nil", bool -> "true"/"false", numerics via default formatting, process
// -> "<process:id name>", aggregate types -> a type tag. Buffer byte
// counts are rendered with humanize.Bytes so large buffers read naturally
// in debug dumps instead of a raw integer.
func (p *StringPool) ToString(v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindByte:
		return strconv.Itoa(int(v.AsByte()))
	case KindInt:
		return strconv.Itoa(int(v.AsInt()))
	case KindUint:
		return strconv.FormatUint(uint64(v.AsUint()), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.AsFloat32()), 'g', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.AsDouble(), 'g', -1, 64)
	case KindString:
		return p.Content(v)
	case KindProcess:
		proc := v.Obj.Payload.(*Process)
		return "<process:" + strconv.Itoa(proc.ID) + " " + proc.Name + ">"
	case KindBuffer:
		buf := v.Obj.AsBuffer()
		return "<buffer " + humanize.Bytes(uint64(len(buf.Data))) + ">"
	case KindArray:
		return "<array>"
	case KindMap:
		return "<map>"
	case KindClosure:
		return "<closure>"
	case KindFunction:
		return "<function>"
	case KindClassInstance:
		return "<instance " + v.Obj.AsClassInstance().Blueprint.Name + ">"
	case KindStructInstance:
		return "<struct " + v.Obj.AsStructInstance().Blueprint.Name + ">"
	default:
		return "<" + v.Kind.String() + ">"
	}
}
