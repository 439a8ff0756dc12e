// Package classfile decodes a single JVM classfile into a ClassFact.
// Decoding never consults any other classfile; the constant pool it
// builds is discarded once the fact is emitted.
package classfile

import (
	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/constpool"
	"github.com/corescan/jscan/internal/diagnostic"
)

const magic = 0xCAFEBABE

// Access flag bits relevant to classification (JVM spec table 4.1-A).
const (
	accPublic     = 0x0001
	accFinal      = 0x0010
	accSuper      = 0x0020
	accInterface  = 0x0200
	accAbstract   = 0x0400
	accSynthetic  = 0x1000
	accAnnotation = 0x2000
	accEnum       = 0x4000
)

// Kind classifies a decoded classfile.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
	KindAnnotation
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindAnnotation:
		return "annotation"
	case KindEnum:
		return "enum"
	default:
		return "class"
	}
}

// Modifiers captures the subset of access_flags the hierarchy and query
// layers care about.
type Modifiers struct {
	Public    bool
	Private   bool
	Protected bool
	Static    bool
	Final     bool
	Abstract  bool
	Synthetic bool
}

func modifiersFromFlags(flags uint16) Modifiers {
	return Modifiers{
		Public:    flags&0x0001 != 0,
		Private:   flags&0x0002 != 0,
		Protected: flags&0x0004 != 0,
		Static:    flags&0x0008 != 0,
		Final:     flags&accFinal != 0,
		Abstract:  flags&accAbstract != 0,
		Synthetic: flags&accSynthetic != 0,
	}
}

// Annotation is a declared annotation use: its type name plus raw
// element-value pairs, name-keyed.
type Annotation struct {
	TypeName string
	Elements map[string]ElementValue
}

// ElementValueTag identifies the shape of one annotation element value.
type ElementValueTag byte

const (
	EVConst      ElementValueTag = iota // primitive or String constant
	EVEnum                              // enum constant: type + name
	EVClass                             // class literal
	EVAnnotation                        // nested annotation
	EVArray                             // array of element values
)

// ElementValue is one annotation element-value, recursively for nested
// annotations and arrays.
type ElementValue struct {
	Tag         ElementValueTag
	ConstString string         // EVConst: string/primitive rendered as text
	EnumType    string         // EVEnum
	EnumName    string         // EVEnum
	ClassDesc   string         // EVClass: raw field descriptor
	Nested      *Annotation    // EVAnnotation
	Array       []ElementValue // EVArray
}

// FieldFact is one field's decoded record.
type FieldFact struct {
	Name          string
	Descriptor    string
	Signature     string // raw generic signature, empty if absent
	Modifiers     Modifiers
	Annotations   []Annotation
	ConstantValue *string // rendered literal, nil if absent
}

// ParamModifier is one MethodParameters entry's access_flags subset.
type ParamModifier struct {
	Name      string
	Final     bool
	Synthetic bool
	Mandated  bool
}

// MethodFact is one method's decoded record.
type MethodFact struct {
	Name                 string
	Descriptor           string
	Signature            string
	Modifiers            Modifiers
	Parameters           []ParamModifier
	ParameterAnnotations [][]Annotation
	Annotations          []Annotation
	Exceptions           []string // dotted class names
}

// ClassFact is the decoded shape of one classfile, emitted once per
// successful Decode.
type ClassFact struct {
	Name            string
	Kind            Kind
	Modifiers       Modifiers
	SuperName       string // empty for interfaces and java.lang.Object
	Interfaces      []string
	Annotations     []Annotation
	Signature       string // raw class-level generic signature, empty if absent
	Fields          []FieldFact
	Methods         []MethodFact
	EnclosingClass  string // from EnclosingMethod, empty if absent
	EnclosingMethod string
	InnerClasses    []string
	SourceLocation  int // classpath root index, for shadowing
}

// Options gates the decoder's optional sections, mirroring the
// enable_field_info/enable_method_info/enable_annotation_info/
// include_runtime_invisible_annotations/ignore_visibility_* configuration
// keys.
type Options struct {
	EnableFieldInfo                    bool
	EnableMethodInfo                   bool
	EnableAnnotationInfo               bool
	EnableStaticFinalConstants         bool
	IncludeRuntimeInvisibleAnnotations bool

	// IgnoreVisibilityFields/IgnoreVisibilityMethods, when false (the
	// default), restrict the optional field/method sections to
	// public members, matching the host VM's reflective default. Setting
	// either true retains private/protected/package-private declarations
	// as well.
	IgnoreVisibilityFields  bool
	IgnoreVisibilityMethods bool
}

// DefaultOptions enables the field, method, annotation and static-final
// constant sections. Runtime-invisible annotations stay excluded and the
// field/method sections keep public members only.
func DefaultOptions() Options {
	return Options{
		EnableFieldInfo:            true,
		EnableMethodInfo:           true,
		EnableAnnotationInfo:       true,
		EnableStaticFinalConstants: true,
	}
}

// ErrNotAClassfile signals a magic-number mismatch: callers ignore this
// input silently rather than treating it as a scan failure.
var ErrNotAClassfile = &notClassfileError{}

type notClassfileError struct{}

func (*notClassfileError) Error() string { return "not a classfile: magic mismatch" }

// Decode reads one classfile from src and returns its ClassFact.
// sourceLocation is the classpath root index that produced src, recorded
// for shadowing resolution.
func Decode(src *bytesource.Source, sourceLocation int, opts Options) (*ClassFact, error) {
	m, err := src.U32()
	if err != nil {
		return nil, err
	}
	if m != magic {
		return nil, ErrNotAClassfile
	}
	if _, err := src.U16(); err != nil { // minor
		return nil, err
	}
	if _, err := src.U16(); err != nil { // major
		return nil, err
	}

	pool, err := constpool.Parse(src)
	if err != nil {
		return nil, err
	}

	flags, err := src.U16()
	if err != nil {
		return nil, err
	}

	thisIdx, err := src.U16()
	if err != nil {
		return nil, err
	}
	thisName, err := pool.ClassName(thisIdx)
	if err != nil {
		return nil, err
	}

	superIdx, err := src.U16()
	if err != nil {
		return nil, err
	}
	var superName string
	if superIdx != 0 {
		superName, err = pool.ClassName(superIdx)
		if err != nil {
			return nil, err
		}
		if flags&accInterface != 0 {
			superName = ""
		}
	} else if flags&accInterface == 0 && thisName != "java.lang.Object" {
		return nil, &diagnostic.FormatError{Source: src.Label(), Reason: "missing superclass for non-Object, non-interface class"}
	}

	ifaceCount, err := src.U16()
	if err != nil {
		return nil, err
	}
	interfaces := make([]string, 0, ifaceCount)
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := src.U16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		interfaces = append(interfaces, name)
	}

	fields, err := decodeFields(src, pool, opts)
	if err != nil {
		return nil, err
	}

	methods, err := decodeMethods(src, pool, opts)
	if err != nil {
		return nil, err
	}

	fact := &ClassFact{
		Name:           thisName,
		Kind:           classifyKind(flags),
		Modifiers:      modifiersFromFlags(flags),
		SuperName:      superName,
		Interfaces:     interfaces,
		Fields:         fields,
		Methods:        methods,
		SourceLocation: sourceLocation,
	}

	if err := decodeClassAttributes(src, pool, opts, fact); err != nil {
		return nil, err
	}

	return fact, nil
}

func classifyKind(flags uint16) Kind {
	switch {
	case flags&accAnnotation != 0:
		return KindAnnotation
	case flags&accEnum != 0:
		return KindEnum
	case flags&accInterface != 0:
		return KindInterface
	default:
		return KindClass
	}
}
