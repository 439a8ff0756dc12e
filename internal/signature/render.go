package signature

import "strings"

// baseTypeWireLetters is the inverse of parser.go's baseTypeNames, mapping a
// BaseType's display name back to its single-letter wire tag.
var baseTypeWireLetters = map[string]byte{
	"byte": 'B', "char": 'C', "double": 'D', "float": 'F',
	"int": 'I', "long": 'J', "short": 'S', "boolean": 'Z',
}

// RenderWire re-emits t in the exact JVM signature wire grammar it was
// parsed from: "L...;" class types, "T...;" type variables, "[" array
// prefixes, and "+"/"-"/"*" wildcard markers: RenderWire on a parsed
// well-formed signature reproduces the input byte for byte, as distinct
// from Render's Java-source-like display form below.
func RenderWire(t Type) string {
	var b strings.Builder
	renderWireType(&b, t)
	return b.String()
}

func renderWireType(b *strings.Builder, t Type) {
	switch v := t.(type) {
	case BaseType:
		if letter, ok := baseTypeWireLetters[v.Name]; ok {
			b.WriteByte(letter)
		} else {
			b.WriteByte('V') // only "void" falls through, in a return position
		}
	case TypeVariable:
		b.WriteByte('T')
		b.WriteString(v.Name)
		b.WriteByte(';')
	case ArrayType:
		for i := 0; i < v.Dims; i++ {
			b.WriteByte('[')
		}
		renderWireType(b, v.Elem)
	case ClassType:
		b.WriteByte('L')
		b.WriteString(wireName(v.Name))
		renderWireTypeArgs(b, v.TypeArgs)
		for _, s := range v.NestedSuffixes {
			b.WriteByte('.')
			b.WriteString(s.Name)
			renderWireTypeArgs(b, s.TypeArgs)
		}
		b.WriteByte(';')
	}
}

// wireName folds a dotted class name back to its internal slash form, the
// inverse of parser.go's replaceSlashes.
func wireName(dotted string) string {
	out := make([]byte, len(dotted))
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			out[i] = '/'
		} else {
			out[i] = dotted[i]
		}
	}
	return string(out)
}

func renderWireTypeArgs(b *strings.Builder, args []TypeArgument) {
	if len(args) == 0 {
		return
	}
	b.WriteByte('<')
	for _, a := range args {
		switch a.Wildcard {
		case WildcardAny:
			b.WriteByte('*')
		case WildcardExtends:
			b.WriteByte('+')
			renderWireType(b, a.Ref)
		case WildcardSuper:
			b.WriteByte('-')
			renderWireType(b, a.Ref)
		default:
			renderWireType(b, a.Ref)
		}
	}
	b.WriteByte('>')
}

func renderWireTypeParams(b *strings.Builder, params []TypeParameter) {
	if len(params) == 0 {
		return
	}
	b.WriteByte('<')
	for _, tp := range params {
		b.WriteString(tp.Name)
		b.WriteByte(':')
		if tp.ClassBound != nil {
			renderWireType(b, tp.ClassBound)
		}
		for _, ib := range tp.InterfaceBounds {
			b.WriteByte(':')
			renderWireType(b, ib)
		}
	}
	b.WriteByte('>')
}

// RenderWireClassSig re-emits a ClassSig as the original ClassSignature wire
// string: TypeParameters? SuperclassSig SuperinterfaceSig*.
func RenderWireClassSig(c *ClassSig) string {
	var b strings.Builder
	renderWireTypeParams(&b, c.TypeParams)
	renderWireType(&b, c.Superclass)
	for _, i := range c.SuperInterfaces {
		renderWireType(&b, i)
	}
	return b.String()
}

// RenderWireMethodSig re-emits a MethodSig as the original MethodSignature
// wire string: TypeParameters? "(" TypeSignature* ")" TypeSignature ("^"
// (ClassTypeSignature | TypeVariableSignature))*.
func RenderWireMethodSig(m *MethodSig) string {
	var b strings.Builder
	renderWireTypeParams(&b, m.TypeParams)
	b.WriteByte('(')
	for _, p := range m.Params {
		renderWireType(&b, p)
	}
	b.WriteByte(')')
	renderWireType(&b, m.Result)
	for _, t := range m.Throws {
		b.WriteByte('^')
		renderWireType(&b, t)
	}
	return b.String()
}

// Render renders t back into Java source-like notation (not the original
// wire grammar), used for display and for round-trip tests that check
// semantic equivalence rather than byte-for-byte wire equality.
func Render(t Type) string {
	var b strings.Builder
	renderType(&b, t)
	return b.String()
}

func renderType(b *strings.Builder, t Type) {
	switch v := t.(type) {
	case BaseType:
		b.WriteString(v.Name)
	case TypeVariable:
		b.WriteString(v.Name)
	case ArrayType:
		renderType(b, v.Elem)
		for i := 0; i < v.Dims; i++ {
			b.WriteString("[]")
		}
	case ClassType:
		b.WriteString(v.Name)
		renderTypeArgs(b, v.TypeArgs)
		for _, s := range v.NestedSuffixes {
			b.WriteString(".")
			b.WriteString(s.Name)
			renderTypeArgs(b, s.TypeArgs)
		}
	}
}

func renderTypeArgs(b *strings.Builder, args []TypeArgument) {
	if len(args) == 0 {
		return
	}
	b.WriteString("<")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		switch a.Wildcard {
		case WildcardAny:
			b.WriteString("?")
		case WildcardExtends:
			b.WriteString("? extends ")
			renderType(b, a.Ref)
		case WildcardSuper:
			b.WriteString("? super ")
			renderType(b, a.Ref)
		default:
			renderType(b, a.Ref)
		}
	}
	b.WriteString(">")
}

// RenderClassSig renders a full class signature's type-parameter list and
// supertype clause.
func RenderClassSig(c *ClassSig) string {
	var b strings.Builder
	renderTypeParams(&b, c.TypeParams)
	b.WriteString(" extends ")
	renderType(&b, c.Superclass)
	for _, i := range c.SuperInterfaces {
		b.WriteString(" implements ")
		renderType(&b, i)
	}
	return b.String()
}

// RenderMethodSig renders a full method signature's type-parameter list,
// parameter types, return type, and throws clause.
func RenderMethodSig(m *MethodSig) string {
	var b strings.Builder
	renderTypeParams(&b, m.TypeParams)
	b.WriteString("(")
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		renderType(&b, p)
	}
	b.WriteString(") ")
	renderType(&b, m.Result)
	for _, t := range m.Throws {
		b.WriteString(" throws ")
		renderType(&b, t)
	}
	return b.String()
}

func renderTypeParams(b *strings.Builder, params []TypeParameter) {
	if len(params) == 0 {
		return
	}
	b.WriteString("<")
	for i, tp := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tp.Name)
		if tp.ClassBound != nil {
			b.WriteString(" extends ")
			renderType(b, tp.ClassBound)
		}
		for _, ib := range tp.InterfaceBounds {
			b.WriteString(" & ")
			renderType(b, ib)
		}
	}
	b.WriteString(">")
}
