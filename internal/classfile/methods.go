package classfile

import (
	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/constpool"
)

// decodeMethods reads methods_count followed by that many method_info
// structures.
func decodeMethods(src *bytesource.Source, pool *constpool.Pool, opts Options) ([]MethodFact, error) {
	count, err := src.U16()
	if err != nil {
		return nil, err
	}

	var methods []MethodFact
	for i := 0; i < int(count); i++ {
		flags, err := src.U16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := src.U16()
		if err != nil {
			return nil, err
		}
		descIdx, err := src.U16()
		if err != nil {
			return nil, err
		}
		attrs, err := readAttributes(src, pool)
		if err != nil {
			return nil, err
		}

		if !opts.EnableMethodInfo {
			continue
		}
		if !opts.IgnoreVisibilityMethods && flags&accPublic == 0 {
			continue
		}

		name, err := pool.Utf8(nameIdx)
		if err != nil {
			return nil, err
		}
		descriptor, err := pool.Utf8(descIdx)
		if err != nil {
			return nil, err
		}

		method := MethodFact{
			Name:       name,
			Descriptor: descriptor,
			Modifiers:  modifiersFromFlags(flags),
		}

		if a, ok := findAttribute(attrs, "Signature"); ok {
			sig, err := readSignatureBody(a.body, pool)
			if err != nil {
				return nil, err
			}
			method.Signature = sig
		}

		if a, ok := findAttribute(attrs, "MethodParameters"); ok {
			params, err := readMethodParametersBody(a.body, pool)
			if err != nil {
				return nil, err
			}
			method.Parameters = params
		}

		if a, ok := findAttribute(attrs, "Exceptions"); ok {
			exceptions, err := readExceptionsBody(a.body, pool)
			if err != nil {
				return nil, err
			}
			method.Exceptions = exceptions
		}

		if opts.EnableAnnotationInfo {
			if a, ok := findAttribute(attrs, "RuntimeVisibleAnnotations"); ok {
				anns, err := decodeAnnotationsBody(a.body, pool)
				if err != nil {
					return nil, err
				}
				method.Annotations = anns
			}
			if a, ok := findAttribute(attrs, "RuntimeVisibleParameterAnnotations"); ok {
				paramAnns, err := readParameterAnnotationsBody(a.body, pool)
				if err != nil {
					return nil, err
				}
				method.ParameterAnnotations = paramAnns
			}
		}

		methods = append(methods, method)
	}
	return methods, nil
}

const (
	paramAccFinal     = 0x0010
	paramAccSynthetic = 0x1000
	paramAccMandated  = 0x8000
)

func readMethodParametersBody(body []byte, pool *constpool.Pool) ([]ParamModifier, error) {
	src := bytesource.OpenBuffer("method-parameters-attr", body)
	count, err := src.U8()
	if err != nil {
		return nil, err
	}
	params := make([]ParamModifier, 0, count)
	for i := 0; i < int(count); i++ {
		nameIdx, err := src.U16()
		if err != nil {
			return nil, err
		}
		flags, err := src.U16()
		if err != nil {
			return nil, err
		}
		var name string
		if nameIdx != 0 {
			name, err = pool.Utf8(nameIdx)
			if err != nil {
				return nil, err
			}
		}
		params = append(params, ParamModifier{
			Name:      name,
			Final:     flags&paramAccFinal != 0,
			Synthetic: flags&paramAccSynthetic != 0,
			Mandated:  flags&paramAccMandated != 0,
		})
	}
	return params, nil
}

func readExceptionsBody(body []byte, pool *constpool.Pool) ([]string, error) {
	src := bytesource.OpenBuffer("exceptions-attr", body)
	count, err := src.U16()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		idx, err := src.U16()
		if err != nil {
			return nil, err
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func readParameterAnnotationsBody(body []byte, pool *constpool.Pool) ([][]Annotation, error) {
	src := bytesource.OpenBuffer("parameter-annotations-attr", body)
	numParams, err := src.U8()
	if err != nil {
		return nil, err
	}
	result := make([][]Annotation, numParams)
	for i := 0; i < int(numParams); i++ {
		count, err := src.U16()
		if err != nil {
			return nil, err
		}
		anns := make([]Annotation, 0, count)
		for j := 0; j < int(count); j++ {
			a, err := readAnnotation(src, pool)
			if err != nil {
				return nil, err
			}
			anns = append(anns, a)
		}
		result[i] = anns
	}
	return result, nil
}
