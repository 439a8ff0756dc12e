package classfile

import (
	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/constpool"
)

// rawAttribute is one attribute_info entry before interpretation: its name,
// already resolved against the constant pool, and its raw body bytes.
type rawAttribute struct {
	name string
	body []byte
}

// readAttributes reads attributes_count followed by that many attribute_info
// structures, resolving each name against pool but deferring body
// interpretation to the caller. Unknown attributes are carried through
// unexamined: exactly `length` bytes are read for each regardless of
// whether the caller inspects them.
func readAttributes(src *bytesource.Source, pool *constpool.Pool) ([]rawAttribute, error) {
	count, err := src.U16()
	if err != nil {
		return nil, err
	}
	attrs := make([]rawAttribute, 0, count)
	for i := 0; i < int(count); i++ {
		nameIdx, err := src.U16()
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		length, err := src.U32()
		if err != nil {
			return nil, err
		}
		body, err := src.ReadN(int(length))
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, rawAttribute{name: name, body: body})
	}
	return attrs, nil
}

func findAttribute(attrs []rawAttribute, name string) (rawAttribute, bool) {
	for _, a := range attrs {
		if a.name == name {
			return a, true
		}
	}
	return rawAttribute{}, false
}

// decodeClassAttributes reads the class-level attribute table and populates
// Signature, Annotations, EnclosingClass/Method, and InnerClasses on fact.
func decodeClassAttributes(src *bytesource.Source, pool *constpool.Pool, opts Options, fact *ClassFact) error {
	attrs, err := readAttributes(src, pool)
	if err != nil {
		return err
	}

	if a, ok := findAttribute(attrs, "Signature"); ok {
		sig, err := readSignatureBody(a.body, pool)
		if err != nil {
			return err
		}
		fact.Signature = sig
	}

	if opts.EnableAnnotationInfo {
		if a, ok := findAttribute(attrs, "RuntimeVisibleAnnotations"); ok {
			anns, err := decodeAnnotationsBody(a.body, pool)
			if err != nil {
				return err
			}
			fact.Annotations = append(fact.Annotations, anns...)
		}
		if opts.IncludeRuntimeInvisibleAnnotations {
			if a, ok := findAttribute(attrs, "RuntimeInvisibleAnnotations"); ok {
				anns, err := decodeAnnotationsBody(a.body, pool)
				if err != nil {
					return err
				}
				fact.Annotations = append(fact.Annotations, anns...)
			}
		}
	}

	if a, ok := findAttribute(attrs, "EnclosingMethod"); ok {
		class, method, err := readEnclosingMethodBody(a.body, pool)
		if err != nil {
			return err
		}
		fact.EnclosingClass = class
		fact.EnclosingMethod = method
	}

	if a, ok := findAttribute(attrs, "InnerClasses"); ok {
		names, err := readInnerClassesBody(a.body, pool)
		if err != nil {
			return err
		}
		fact.InnerClasses = names
	}

	return nil
}

func readSignatureBody(body []byte, pool *constpool.Pool) (string, error) {
	src := bytesource.OpenBuffer("signature-attr", body)
	idx, err := src.U16()
	if err != nil {
		return "", err
	}
	return pool.Utf8(idx)
}

func readEnclosingMethodBody(body []byte, pool *constpool.Pool) (class, method string, err error) {
	src := bytesource.OpenBuffer("enclosing-method-attr", body)
	classIdx, err := src.U16()
	if err != nil {
		return "", "", err
	}
	methodIdx, err := src.U16()
	if err != nil {
		return "", "", err
	}
	class, err = pool.ClassName(classIdx)
	if err != nil {
		return "", "", err
	}
	if methodIdx != 0 {
		method, _, err = pool.NameAndType(methodIdx)
		if err != nil {
			return "", "", err
		}
	}
	return class, method, nil
}

func readInnerClassesBody(body []byte, pool *constpool.Pool) ([]string, error) {
	src := bytesource.OpenBuffer("inner-classes-attr", body)
	count, err := src.U16()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		innerIdx, err := src.U16()
		if err != nil {
			return nil, err
		}
		if _, err := src.U16(); err != nil { // outer_class_info_index
			return nil, err
		}
		if _, err := src.U16(); err != nil { // inner_name_index
			return nil, err
		}
		if _, err := src.U16(); err != nil { // inner_class_access_flags
			return nil, err
		}
		name, err := pool.ClassName(innerIdx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
