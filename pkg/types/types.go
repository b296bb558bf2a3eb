// Package types implements the type & entity system of §4.2: a DAG of
// primitive/pointer/array/method/struct/union/class types, entities with
// linkage and initializer trees, and the class-inheritance transitive
// closure cache used by polymorphic dispatch resolution.
//
// Grounded on original_source/ir/tr/tr_inheritance.c for the exact
// is_SubClass_of / resolve_ent_polymorphy algorithm; there is no teacher
// analog, so the interning-table shape follows pkg/opt's value-table
// idiom (C6) applied to types instead of nodes.
package types

import "github.com/firmgo/firmc/pkg/ir"

// Kind is the type-kind tag of §3's "kinded sum".
type Kind int

const (
	KindPrimitive Kind = iota
	KindPointer
	KindArray
	KindMethod
	KindStruct
	KindUnion
	KindClass
)

// Type is one node of the type DAG.
type Type struct {
	Kind Kind
	Name string

	Size      int64
	Align     int64
	Visited   uint32

	// Pointer / Array
	Pointee *Type
	Element *Type
	Length  int64 // -1 for unbounded

	// Method
	Params  []*Type
	Results []*Type
	CallingConv string

	// Struct / Union / Class
	Members []*Entity

	// Class inheritance DAG
	Super []*Type
	Sub   []*Type

	closure *closureCache
}

// Linkage describes an entity's visibility/storage class (§3).
type Linkage int

const (
	LinkageLocal Linkage = iota
	LinkageExternal
	LinkageConstant
	LinkageWeak
)

// Initializer is a kinded sum describing how an entity's storage is
// pre-filled (§3: "constant / tarval / null / compound sequence").
type Initializer struct {
	Kind     InitKind
	TarvalBits uint64
	Compound []*Initializer
	MethodRef *Entity // non-nil when this slot stores a function pointer
}

type InitKind int

const (
	InitNone InitKind = iota
	InitTarval
	InitNull
	InitCompound
	InitMethodRef
)

// Entity represents a named storage location or function (§3).
type Entity struct {
	Name    string
	Owner   *Type
	Type    *Type
	Linkage Linkage
	Graph   *ir.Graph // non-nil for method entities with a body
	Init    *Initializer
	Offset  int64

	Overwrites   []*Entity // entities this one overrides
	OverwrittenBy []*Entity // entities that override this one

	// ExternalVisibility marks an entity whose address may leak outside
	// this compilation unit, feeding CGANA's free_methods rule (§4.8.2).
	ExternalVisibility bool
	IsEntryPoint       bool
}

// FrameType returns the frame type of a method entity's graph, per §4.2's
// KindError for non-method entities.
func (e *Entity) FrameType() (*Type, error) {
	if e.Type == nil || e.Type.Kind != KindMethod {
		return nil, &ir.KindError{Op: "FrameType on non-method entity"}
	}
	return &Type{Kind: KindStruct, Name: e.Name + ".frame"}, nil
}

// Program is the program-wide arena owning types and entities visible
// across graphs (§3 "Ownership").
type Program struct {
	Types    []*Type
	Entities []*Entity
	idents   map[string]bool
}

func NewProgram() *Program {
	return &Program{idents: make(map[string]bool)}
}

// Declare registers an entity's name within its owner scope, failing with
// DuplicateIdentError on collision (§4.2).
func (p *Program) Declare(scope string, e *Entity) error {
	key := scope + "::" + e.Name
	if p.idents[key] {
		return &ir.DuplicateIdentError{Ident: key}
	}
	p.idents[key] = true
	p.Entities = append(p.Entities, e)
	return nil
}

func (p *Program) NewType(t *Type) *Type {
	p.Types = append(p.Types, t)
	return t
}
