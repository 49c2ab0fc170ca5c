package minilogic

import (
	"fmt"
	"sort"
	"strings"
)

// Value represents a symbolic or concrete value.
type Value interface {
	isValue()
	String() string
	Equal(other Value) bool
}

// IntValue is a concrete integer. C comparisons and logical operators
// produce 0 or 1.
type IntValue struct {
	Val int64
}

func (IntValue) isValue() {}
func (v IntValue) String() string {
	return fmt.Sprintf("%d", v.Val)
}

func (v IntValue) Equal(other Value) bool {
	if o, ok := other.(IntValue); ok {
		return v.Val == o.Val
	}
	return false
}

// SymbolicValue represents a value that cannot be determined statically.
type SymbolicValue struct {
	Name string
}

func (SymbolicValue) isValue() {}
func (v SymbolicValue) String() string {
	return fmt.Sprintf("<%s>", v.Name)
}

func (v SymbolicValue) Equal(other Value) bool {
	if o, ok := other.(SymbolicValue); ok {
		return v.Name == o.Name
	}
	return false
}

func boolValue(b bool) Value {
	if b {
		return IntValue{Val: 1}
	}
	return IntValue{Val: 0}
}

// Env maps variable names to their values.
type Env struct {
	vars map[string]Value
}

func NewEnv() *Env {
	return &Env{vars: make(map[string]Value)}
}

// Get returns the value bound to name, or nil when unbound.
func (e *Env) Get(name string) Value {
	return e.vars[name]
}

func (e *Env) Set(name string, val Value) {
	e.vars[name] = val
}

func (e *Env) Clone() *Env {
	out := &Env{vars: make(map[string]Value, len(e.vars))}
	for k, v := range e.vars {
		out.vars[k] = v
	}
	return out
}

// Equal checks if two environments have the same bindings.
func (e *Env) Equal(other *Env) bool {
	if e == nil || other == nil {
		return e == other
	}
	if len(e.vars) != len(other.vars) {
		return false
	}
	for k, v := range e.vars {
		ov, ok := other.vars[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Keys returns the bound names in sorted order.
func (e *Env) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Env) String() string {
	parts := make([]string, 0, len(e.vars))
	for _, k := range e.Keys() {
		parts = append(parts, k+": "+e.vars[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
