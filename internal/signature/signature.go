// Package signature parses the JVM generic-signature grammar embedded in
// class, field, and method Signature attributes. The AST is a
// closed algebraic type: every shape is a concrete struct implementing the
// unexported Type marker, and operations over it (ReferencedClassNames,
// Render, RenderWire) are free functions with an exhaustive type switch
// rather than methods.
package signature

// Type is the closed set of type-signature shapes: BaseType, ClassType,
// TypeVariable, and ArrayType.
type Type interface {
	isType()
}

// BaseType is one of the eight JVM primitive types, or void in a method
// return position.
type BaseType struct {
	Name string // "byte","short","int","long","float","double","char","boolean","void"
}

func (BaseType) isType() {}

// WildcardKind classifies a TypeArgument's wildcard form.
type WildcardKind int

const (
	// WildcardNone is a plain, unbounded type argument.
	WildcardNone WildcardKind = iota
	// WildcardAny is the unbounded wildcard "*".
	WildcardAny
	// WildcardExtends is "? extends T" ("+T" in the grammar).
	WildcardExtends
	// WildcardSuper is "? super T" ("-T" in the grammar).
	WildcardSuper
)

// TypeArgument is one element of a ClassType's angle-bracketed argument list.
type TypeArgument struct {
	Wildcard WildcardKind
	Ref      Type // nil when Wildcard == WildcardAny
}

// ClassTypeSuffix is one ".SimpleClassTypeSignature" nested-class suffix.
type ClassTypeSuffix struct {
	Name     string
	TypeArgs []TypeArgument
}

// ClassType is a reference type: a (possibly generic, possibly
// inner-class-qualified) class or interface name.
type ClassType struct {
	Name           string // dotted package-qualified simple name, e.g. "java.util.List"
	TypeArgs       []TypeArgument
	NestedSuffixes []ClassTypeSuffix
}

func (ClassType) isType() {}

// TypeVariable is a use of a declared TypeParameter inside a signature.
// Resolution to its declaring TypeParameter is lazy and name-based: no
// owning pointer is stored here, so no cycle is ever formed between a
// TypeVariable and its enclosing signature.
type TypeVariable struct {
	Name string
}

func (TypeVariable) isType() {}

// ArrayType is an array of some element type, with adjacent "[" prefixes
// collapsed into a single dimension count.
type ArrayType struct {
	Elem Type
	Dims int
}

func (ArrayType) isType() {}

// TypeParameter is one formal generic placeholder declared by a class or
// method signature.
type TypeParameter struct {
	Name            string
	ClassBound      Type // nil if omitted (interface-only bound)
	InterfaceBounds []Type
}

// ClassSig is the parsed form of a class Signature attribute.
type ClassSig struct {
	TypeParams      []TypeParameter
	Superclass      Type // ClassType; always present, the parser requires one
	SuperInterfaces []Type
}

// ResolveBound looks up a type variable by name against this class's own
// type parameters. Resolution is lazy and name-based.
func (c *ClassSig) ResolveBound(name string) (*TypeParameter, bool) {
	return resolveBound(c.TypeParams, name)
}

// MethodSig is the parsed form of a method Signature attribute.
type MethodSig struct {
	TypeParams []TypeParameter
	Params     []Type
	Result     Type
	Throws     []Type
}

// ResolveBound looks up a type variable by name against this method's own
// type parameters.
func (m *MethodSig) ResolveBound(name string) (*TypeParameter, bool) {
	return resolveBound(m.TypeParams, name)
}

func resolveBound(params []TypeParameter, name string) (*TypeParameter, bool) {
	for i := range params {
		if params[i].Name == name {
			return &params[i], true
		}
	}
	return nil, false
}

// ReferencedClassNames walks t and returns every ClassType/TypeVariable name
// reachable from it, in encounter order with duplicates preserved (callers
// that need a set can dedupe).
func ReferencedClassNames(t Type) []string {
	var names []string
	var walk func(Type)
	walk = func(t Type) {
		if t == nil {
			return
		}
		switch v := t.(type) {
		case BaseType:
			// no referenced class
		case ClassType:
			names = append(names, v.Name)
			for _, a := range v.TypeArgs {
				walk(a.Ref)
			}
			for _, s := range v.NestedSuffixes {
				for _, a := range s.TypeArgs {
					walk(a.Ref)
				}
			}
		case TypeVariable:
			names = append(names, v.Name)
		case ArrayType:
			walk(v.Elem)
		}
	}
	walk(t)
	return names
}
