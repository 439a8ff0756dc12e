package classfile

import (
	"fmt"

	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/constpool"
	"github.com/corescan/jscan/internal/diagnostic"
)

// decodeAnnotationsBody decodes a RuntimeVisible/InvisibleAnnotations
// attribute body: num_annotations followed by that many annotation
// structures.
func decodeAnnotationsBody(body []byte, pool *constpool.Pool) ([]Annotation, error) {
	src := bytesource.OpenBuffer("annotations-attr", body)
	count, err := src.U16()
	if err != nil {
		return nil, err
	}
	anns := make([]Annotation, 0, count)
	for i := 0; i < int(count); i++ {
		a, err := readAnnotation(src, pool)
		if err != nil {
			return nil, err
		}
		anns = append(anns, a)
	}
	return anns, nil
}

func readAnnotation(src *bytesource.Source, pool *constpool.Pool) (Annotation, error) {
	typeIdx, err := src.U16()
	if err != nil {
		return Annotation{}, err
	}
	typeDesc, err := pool.Utf8(typeIdx)
	if err != nil {
		return Annotation{}, err
	}

	pairCount, err := src.U16()
	if err != nil {
		return Annotation{}, err
	}
	elements := make(map[string]ElementValue, pairCount)
	for i := 0; i < int(pairCount); i++ {
		nameIdx, err := src.U16()
		if err != nil {
			return Annotation{}, err
		}
		name, err := pool.Utf8(nameIdx)
		if err != nil {
			return Annotation{}, err
		}
		val, err := readElementValue(src, pool)
		if err != nil {
			return Annotation{}, err
		}
		elements[name] = val
	}

	return Annotation{TypeName: constpool.InternalToDotted(typeDesc), Elements: elements}, nil
}

// readElementValue decodes one element_value by its tag byte:
// B C D F I J S Z s are primitive/string constants, e is an enum
// constant, c is a class literal, @ recurses into a nested annotation, and [
// reads an array of element values. Any other tag is a format error.
func readElementValue(src *bytesource.Source, pool *constpool.Pool) (ElementValue, error) {
	tag, err := src.U8()
	if err != nil {
		return ElementValue{}, err
	}

	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		idx, err := src.U16()
		if err != nil {
			return ElementValue{}, err
		}
		text, err := constValueText(pool, tag, idx)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: EVConst, ConstString: text}, nil

	case 'e':
		typeIdx, err := src.U16()
		if err != nil {
			return ElementValue{}, err
		}
		nameIdx, err := src.U16()
		if err != nil {
			return ElementValue{}, err
		}
		typeName, err := pool.Utf8(typeIdx)
		if err != nil {
			return ElementValue{}, err
		}
		constName, err := pool.Utf8(nameIdx)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: EVEnum, EnumType: constpool.InternalToDotted(typeName), EnumName: constName}, nil

	case 'c':
		idx, err := src.U16()
		if err != nil {
			return ElementValue{}, err
		}
		desc, err := pool.Utf8(idx)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: EVClass, ClassDesc: desc}, nil

	case '@':
		nested, err := readAnnotation(src, pool)
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Tag: EVAnnotation, Nested: &nested}, nil

	case '[':
		count, err := src.U16()
		if err != nil {
			return ElementValue{}, err
		}
		values := make([]ElementValue, 0, count)
		for i := 0; i < int(count); i++ {
			v, err := readElementValue(src, pool)
			if err != nil {
				return ElementValue{}, err
			}
			values = append(values, v)
		}
		return ElementValue{Tag: EVArray, Array: values}, nil

	default:
		return ElementValue{}, &diagnostic.FormatError{Source: src.Label(), Reason: fmt.Sprintf("unknown annotation element-value tag %q", tag)}
	}
}

// constValueText renders a primitive or string constant element value as
// text. byte/char/short/boolean/int all share the Integer constant-pool
// slot; only long, float, and double get their own tag kind.
func constValueText(pool *constpool.Pool, tag uint8, idx uint16) (string, error) {
	switch tag {
	case 's':
		return pool.Utf8(idx)
	case 'J':
		v, err := pool.Int64(idx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", v), nil
	case 'F':
		v, err := pool.Float32(idx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%g", v), nil
	case 'D':
		v, err := pool.Float64(idx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%g", v), nil
	default: // B, C, I, S, Z
		v, err := pool.Int32(idx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", v), nil
	}
}
