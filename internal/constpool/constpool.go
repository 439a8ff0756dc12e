// Package constpool parses the classfile constant pool into a
// strongly-typed, 1-indexed table and exposes resolved lookups. The pool is
// parsed once per classfile and never shared across classfiles.
package constpool

import (
	"fmt"
	"math"
	"strings"

	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/diagnostic"
)

// Tag identifies the kind of a constant pool entry.
type Tag uint8

const (
	TagUTF8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

// entry is a tagged union over every recognized constant-pool slot shape.
type entry struct {
	tag  Tag
	utf8 string

	// Integer/Float: bit pattern read verbatim, reinterpreted by callers
	// that need the literal value (the core never needs float math here).
	bits32 uint32
	bits64 uint64

	// Class / String / MethodType: single forward index.
	index1 uint16

	// Fieldref / Methodref / InterfaceMethodref / NameAndType: pair.
	index2a uint16
	index2b uint16

	// MethodHandle: reference kind + index.
	refKind uint8

	// Dynamic / InvokeDynamic: bootstrap method attr index + NameAndType index.
	bootstrapIndex uint16
}

// Pool is the 1-indexed constant pool of one classfile. Slot 0 is unused;
// long and double literals occupy two slots (the second is a sentinel).
type Pool struct {
	entries []entry // entries[0] is the unused slot
}

const longDoubleSentinel = Tag(0)

// Parse reads the constant pool from a byte source whose caller has
// already consumed the magic and version words; Parse itself reads
// constant_pool_count and every following entry.
func Parse(src *bytesource.Source) (*Pool, error) {
	count, err := src.U16()
	if err != nil {
		return nil, err
	}

	p := &Pool{entries: make([]entry, count)}

	for i := 1; i < int(count); i++ {
		tagByte, err := src.U8()
		if err != nil {
			return nil, err
		}
		tag := Tag(tagByte)

		e := entry{tag: tag}
		switch tag {
		case TagUTF8:
			length, err := src.U16()
			if err != nil {
				return nil, err
			}
			raw, err := src.ReadN(int(length))
			if err != nil {
				return nil, err
			}
			e.utf8 = decodeModifiedUTF8(raw)

		case TagInteger, TagFloat:
			v, err := src.U32()
			if err != nil {
				return nil, err
			}
			e.bits32 = v

		case TagLong, TagDouble:
			hi, err := src.U32()
			if err != nil {
				return nil, err
			}
			lo, err := src.U32()
			if err != nil {
				return nil, err
			}
			e.bits64 = uint64(hi)<<32 | uint64(lo)
			p.entries[i] = e
			// Long/double occupy two slots; the second is an unusable sentinel.
			i++
			if i < int(count) {
				p.entries[i] = entry{tag: longDoubleSentinel}
			}
			continue

		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			idx, err := src.U16()
			if err != nil {
				return nil, err
			}
			e.index1 = idx

		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType:
			a, err := src.U16()
			if err != nil {
				return nil, err
			}
			b, err := src.U16()
			if err != nil {
				return nil, err
			}
			e.index2a, e.index2b = a, b

		case TagMethodHandle:
			kind, err := src.U8()
			if err != nil {
				return nil, err
			}
			idx, err := src.U16()
			if err != nil {
				return nil, err
			}
			e.refKind = kind
			e.index1 = idx

		case TagDynamic, TagInvokeDynamic:
			bootstrap, err := src.U16()
			if err != nil {
				return nil, err
			}
			nameAndType, err := src.U16()
			if err != nil {
				return nil, err
			}
			e.bootstrapIndex = bootstrap
			e.index1 = nameAndType

		default:
			return nil, &diagnostic.FormatError{Source: src.Label(), Reason: fmt.Sprintf("unknown constant pool tag %d at index %d", tagByte, i)}
		}

		p.entries[i] = e
	}

	return p, nil
}

func (p *Pool) at(i uint16) (entry, error) {
	if int(i) <= 0 || int(i) >= len(p.entries) {
		return entry{}, &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d out of range", i)}
	}
	return p.entries[i], nil
}

// Utf8 resolves a UTF-8 literal. It also follows one level of indirection
// for Class and String slots.
func (p *Pool) Utf8(i uint16) (string, error) {
	e, err := p.at(i)
	if err != nil {
		return "", err
	}
	switch e.tag {
	case TagUTF8:
		return e.utf8, nil
	case TagClass, TagString:
		return p.Utf8(e.index1)
	default:
		return "", &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not UTF-8 (tag %d)", i, e.tag)}
	}
}

// ClassName resolves a Class constant to its dotted fully-qualified name,
// converting internal '/' separators to '.' and stripping a field-descriptor
// 'L' ... ';' wrapper if present.
func (p *Pool) ClassName(i uint16) (string, error) {
	e, err := p.at(i)
	if err != nil {
		return "", err
	}
	if e.tag != TagClass {
		return "", &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not a Class (tag %d)", i, e.tag)}
	}
	raw, err := p.Utf8(e.index1)
	if err != nil {
		return "", err
	}
	return InternalToDotted(raw), nil
}

// InternalToDotted converts a JVM internal class name ("com/x/Y" or an
// "Lcom/x/Y;" descriptor form) to its dotted form ("com.x.Y").
func InternalToDotted(raw string) string {
	name := raw
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") {
		name = name[1 : len(name)-1]
	}
	return strings.ReplaceAll(name, "/", ".")
}

// Int32 resolves an Integer constant's bit pattern as a signed int32.
func (p *Pool) Int32(i uint16) (int32, error) {
	e, err := p.at(i)
	if err != nil {
		return 0, err
	}
	if e.tag != TagInteger {
		return 0, &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not an Integer", i)}
	}
	return int32(e.bits32), nil
}

// Float32 resolves a Float constant's bit pattern as an IEEE-754 float32.
func (p *Pool) Float32(i uint16) (float32, error) {
	e, err := p.at(i)
	if err != nil {
		return 0, err
	}
	if e.tag != TagFloat {
		return 0, &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not a Float", i)}
	}
	return math.Float32frombits(e.bits32), nil
}

// Int64 resolves a Long constant's bit pattern as a signed int64.
func (p *Pool) Int64(i uint16) (int64, error) {
	e, err := p.at(i)
	if err != nil {
		return 0, err
	}
	if e.tag != TagLong {
		return 0, &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not a Long", i)}
	}
	return int64(e.bits64), nil
}

// Float64 resolves a Double constant's bit pattern as an IEEE-754 float64.
func (p *Pool) Float64(i uint16) (float64, error) {
	e, err := p.at(i)
	if err != nil {
		return 0, err
	}
	if e.tag != TagDouble {
		return 0, &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not a Double", i)}
	}
	return math.Float64frombits(e.bits64), nil
}

// String resolves a String constant to its referenced UTF-8 text.
func (p *Pool) String(i uint16) (string, error) {
	e, err := p.at(i)
	if err != nil {
		return "", err
	}
	if e.tag != TagString {
		return "", &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not a String", i)}
	}
	return p.Utf8(e.index1)
}

// NameAndType resolves a NameAndType entry to its (name, descriptor) pair.
func (p *Pool) NameAndType(i uint16) (name, descriptor string, err error) {
	e, err := p.at(i)
	if err != nil {
		return "", "", err
	}
	if e.tag != TagNameAndType {
		return "", "", &diagnostic.FormatError{Reason: fmt.Sprintf("constant pool index %d is not a NameAndType", i)}
	}
	name, err = p.Utf8(e.index2a)
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.Utf8(e.index2b)
	return name, descriptor, err
}

// decodeModifiedUTF8 decodes the JVM's "modified" UTF-8 (which differs from
// standard UTF-8 only in its encoding of NUL and supplementary characters,
// neither of which affect class/member names used by this decoder, so a
// byte-for-byte passthrough is sufficient for the identifiers we consume).
func decodeModifiedUTF8(raw []byte) string {
	return string(raw)
}
