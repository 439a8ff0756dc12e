package classfile

import (
	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/constpool"
)

// decodeFields reads fields_count followed by that many field_info
// structures. When opts.EnableFieldInfo is false the count is still
// consumed (the classfile's byte layout must be walked regardless) but no
// FieldFact records are retained.
func decodeFields(src *bytesource.Source, pool *constpool.Pool, opts Options) ([]FieldFact, error) {
	count, err := src.U16()
	if err != nil {
		return nil, err
	}

	var fields []FieldFact
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

		if !opts.EnableFieldInfo {
			continue
		}
		if !opts.IgnoreVisibilityFields && flags&accPublic == 0 {
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

		field := FieldFact{
			Name:       name,
			Descriptor: descriptor,
			Modifiers:  modifiersFromFlags(flags),
		}

		if a, ok := findAttribute(attrs, "Signature"); ok {
			sig, err := readSignatureBody(a.body, pool)
			if err != nil {
				return nil, err
			}
			field.Signature = sig
		}

		if opts.EnableAnnotationInfo {
			if a, ok := findAttribute(attrs, "RuntimeVisibleAnnotations"); ok {
				anns, err := decodeAnnotationsBody(a.body, pool)
				if err != nil {
					return nil, err
				}
				field.Annotations = anns
			}
		}

		if opts.EnableStaticFinalConstants {
			if a, ok := findAttribute(attrs, "ConstantValue"); ok {
				text, err := readConstantValueBody(a.body, pool, descriptor)
				if err != nil {
					return nil, err
				}
				field.ConstantValue = &text
			}
		}

		fields = append(fields, field)
	}
	return fields, nil
}

// readConstantValueBody resolves a ConstantValue attribute's single
// constant-pool index, choosing the accessor by the field's descriptor.
func readConstantValueBody(body []byte, pool *constpool.Pool, descriptor string) (string, error) {
	src := bytesource.OpenBuffer("constant-value-attr", body)
	idx, err := src.U16()
	if err != nil {
		return "", err
	}
	if descriptor == "Ljava/lang/String;" {
		return pool.String(idx)
	}
	switch descriptor {
	case "J":
		return constValueText(pool, 'J', idx)
	case "F":
		return constValueText(pool, 'F', idx)
	case "D":
		return constValueText(pool, 'D', idx)
	default: // B, C, I, S, Z
		return constValueText(pool, 'I', idx)
	}
}
