package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/corescan/jscan/internal/bytesource"
)

// classBuilder assembles a minimal but structurally valid classfile byte
// fixture for decoder tests. It mirrors just enough of the constant-pool and
// classfile layout to drive Decode through every section of the format.
type classBuilder struct {
	pool       bytes.Buffer
	poolCount  uint16
	flags      uint16
	thisIdx    uint16
	superIdx   uint16
	interfaces []uint16
	classAttrs bytes.Buffer
	classAttrN uint16
	fields     []*rawMember
	methods    []*rawMember
}

func newClassBuilder() *classBuilder {
	return &classBuilder{poolCount: 1}
}

func (b *classBuilder) addUtf8(s string) uint16 {
	b.pool.WriteByte(1)
	binary.Write(&b.pool, binary.BigEndian, uint16(len(s)))
	b.pool.WriteString(s)
	b.poolCount++
	return b.poolCount - 1
}

func (b *classBuilder) addClass(name string) uint16 {
	nameIdx := b.addUtf8(internalName(name))
	b.pool.WriteByte(7)
	binary.Write(&b.pool, binary.BigEndian, nameIdx)
	b.poolCount++
	return b.poolCount - 1
}

func internalName(dotted string) string {
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

func (b *classBuilder) setThisClass(name string) {
	b.thisIdx = b.addClass(name)
}

func (b *classBuilder) setSuperClass(name string) {
	b.superIdx = b.addClass(name)
}

func (b *classBuilder) addInterface(name string) {
	b.interfaces = append(b.interfaces, b.addClass(name))
}

func (b *classBuilder) setFlags(f uint16) { b.flags = f }

// addRuntimeVisibleAnnotation adds a single zero-argument annotation to the
// class-level attribute table.
func (b *classBuilder) addRuntimeVisibleAnnotation(typeName string) {
	attrNameIdx := b.addUtf8("RuntimeVisibleAnnotations")
	typeIdx := b.addUtf8("L" + internalName(typeName) + ";")

	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, uint16(1)) // num_annotations
	binary.Write(&body, binary.BigEndian, typeIdx)
	binary.Write(&body, binary.BigEndian, uint16(0)) // num_element_value_pairs

	binary.Write(&b.classAttrs, binary.BigEndian, attrNameIdx)
	binary.Write(&b.classAttrs, binary.BigEndian, uint32(body.Len()))
	b.classAttrs.Write(body.Bytes())
	b.classAttrN++
}

// rawMember is one field_info or method_info fixture: flags, name and
// descriptor pool indexes, and pre-assembled attribute bytes.
type rawMember struct {
	flags uint16
	name  uint16
	desc  uint16
	attrN uint16
	attrs bytes.Buffer
}

func (b *classBuilder) addField(flags uint16, name, desc string) *rawMember {
	m := &rawMember{flags: flags, name: b.addUtf8(name), desc: b.addUtf8(desc)}
	b.fields = append(b.fields, m)
	return m
}

func (b *classBuilder) addMethod(flags uint16, name, desc string) *rawMember {
	m := &rawMember{flags: flags, name: b.addUtf8(name), desc: b.addUtf8(desc)}
	b.methods = append(b.methods, m)
	return m
}

func (b *classBuilder) memberAttr(m *rawMember, attrName string, body []byte) {
	nameIdx := b.addUtf8(attrName)
	binary.Write(&m.attrs, binary.BigEndian, nameIdx)
	binary.Write(&m.attrs, binary.BigEndian, uint32(len(body)))
	m.attrs.Write(body)
	m.attrN++
}

func (b *classBuilder) addInteger(v int32) uint16 {
	b.pool.WriteByte(3)
	binary.Write(&b.pool, binary.BigEndian, uint32(v))
	b.poolCount++
	return b.poolCount - 1
}

func (b *classBuilder) addString(s string) uint16 {
	utf8Idx := b.addUtf8(s)
	b.pool.WriteByte(8)
	binary.Write(&b.pool, binary.BigEndian, utf8Idx)
	b.poolCount++
	return b.poolCount - 1
}

func u16bytes(vals ...uint16) []byte {
	var buf bytes.Buffer
	for _, v := range vals {
		binary.Write(&buf, binary.BigEndian, v)
	}
	return buf.Bytes()
}

func (b *classBuilder) build() []byte {
	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint32(magic))
	binary.Write(&out, binary.BigEndian, uint16(0))  // minor
	binary.Write(&out, binary.BigEndian, uint16(61)) // major

	binary.Write(&out, binary.BigEndian, b.poolCount)
	out.Write(b.pool.Bytes())

	binary.Write(&out, binary.BigEndian, b.flags)
	binary.Write(&out, binary.BigEndian, b.thisIdx)
	binary.Write(&out, binary.BigEndian, b.superIdx)

	binary.Write(&out, binary.BigEndian, uint16(len(b.interfaces)))
	for _, idx := range b.interfaces {
		binary.Write(&out, binary.BigEndian, idx)
	}

	writeMembers := func(members []*rawMember) {
		binary.Write(&out, binary.BigEndian, uint16(len(members)))
		for _, m := range members {
			binary.Write(&out, binary.BigEndian, m.flags)
			binary.Write(&out, binary.BigEndian, m.name)
			binary.Write(&out, binary.BigEndian, m.desc)
			binary.Write(&out, binary.BigEndian, m.attrN)
			out.Write(m.attrs.Bytes())
		}
	}
	writeMembers(b.fields)
	writeMembers(b.methods)

	binary.Write(&out, binary.BigEndian, b.classAttrN)
	out.Write(b.classAttrs.Bytes())

	return out.Bytes()
}

func TestDecode_directSubclass(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.B")
	b.setSuperClass("com.x.A")
	src := bytesource.OpenBuffer("B.class", b.build())

	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if fact.Name != "com.x.B" {
		t.Errorf("expected name com.x.B, got %s", fact.Name)
	}
	if fact.SuperName != "com.x.A" {
		t.Errorf("expected super com.x.A, got %s", fact.SuperName)
	}
	if fact.Kind != KindClass {
		t.Errorf("expected KindClass, got %v", fact.Kind)
	}
}

func TestDecode_interfaceWithSuperInterface(t *testing.T) {
	b := newClassBuilder()
	b.setFlags(accInterface | accAbstract)
	b.setThisClass("com.x.I")
	b.setSuperClass("java.lang.Object")
	b.addInterface("com.x.J")
	src := bytesource.OpenBuffer("I.class", b.build())

	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if fact.Kind != KindInterface {
		t.Errorf("expected KindInterface, got %v", fact.Kind)
	}
	if len(fact.Interfaces) != 1 || fact.Interfaces[0] != "com.x.J" {
		t.Errorf("expected [com.x.J], got %v", fact.Interfaces)
	}
}

func TestDecode_classWithAnnotation(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.D")
	b.setSuperClass("java.lang.Object")
	b.addRuntimeVisibleAnnotation("com.x.Tag")
	src := bytesource.OpenBuffer("D.class", b.build())

	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fact.Annotations) != 1 || fact.Annotations[0].TypeName != "com.x.Tag" {
		t.Fatalf("expected one com.x.Tag annotation, got %#v", fact.Annotations)
	}
}

func TestDecode_annotationInfoDisabled(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.D")
	b.setSuperClass("java.lang.Object")
	b.addRuntimeVisibleAnnotation("com.x.Tag")
	src := bytesource.OpenBuffer("D.class", b.build())

	opts := DefaultOptions()
	opts.EnableAnnotationInfo = false
	fact, err := Decode(src, 0, opts)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fact.Annotations) != 0 {
		t.Errorf("expected no annotations with EnableAnnotationInfo=false, got %#v", fact.Annotations)
	}
}

func TestDecode_notAClassfile(t *testing.T) {
	src := bytesource.OpenBuffer("not-a-class", []byte{0x00, 0x00, 0x00, 0x00})
	_, err := Decode(src, 0, DefaultOptions())
	if err != ErrNotAClassfile {
		t.Fatalf("expected ErrNotAClassfile, got %v", err)
	}
}

func TestDecode_truncated(t *testing.T) {
	src := bytesource.OpenBuffer("truncated", []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00})
	if _, err := Decode(src, 0, DefaultOptions()); err == nil {
		t.Fatal("expected error on truncated classfile")
	}
}

func TestKind_String(t *testing.T) {
	cases := map[Kind]string{
		KindClass:      "class",
		KindInterface:  "interface",
		KindAnnotation: "annotation",
		KindEnum:       "enum",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %s, want %s", k, got, want)
		}
	}
}

func TestDecode_fieldWithConstantValueAndSignature(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.Consts")
	b.setSuperClass("java.lang.Object")

	f := b.addField(accPublic|0x0008|accFinal, "LIMIT", "I")
	b.memberAttr(f, "ConstantValue", u16bytes(b.addInteger(42)))
	sigIdx := b.addUtf8("TT;")
	g := b.addField(accPublic, "value", "Ljava/lang/Object;")
	b.memberAttr(g, "Signature", u16bytes(sigIdx))
	h := b.addField(accPublic|0x0008|accFinal, "NAME", "Ljava/lang/String;")
	b.memberAttr(h, "ConstantValue", u16bytes(b.addString("default")))

	src := bytesource.OpenBuffer("Consts.class", b.build())
	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fact.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fact.Fields))
	}
	limit := fact.Fields[0]
	if limit.Name != "LIMIT" || limit.ConstantValue == nil || *limit.ConstantValue != "42" {
		t.Errorf("expected LIMIT = 42, got %+v", limit)
	}
	if !limit.Modifiers.Static || !limit.Modifiers.Final {
		t.Errorf("expected static final modifiers, got %+v", limit.Modifiers)
	}
	if fact.Fields[1].Signature != "TT;" {
		t.Errorf("expected generic signature TT;, got %q", fact.Fields[1].Signature)
	}
	name := fact.Fields[2]
	if name.ConstantValue == nil || *name.ConstantValue != "default" {
		t.Errorf("expected NAME = default, got %+v", name.ConstantValue)
	}
}

func TestDecode_fieldVisibilityGate(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.Hidden")
	b.setSuperClass("java.lang.Object")
	b.addField(0x0002, "secret", "I") // private
	b.addField(accPublic, "open", "I")

	src := bytesource.OpenBuffer("Hidden.class", b.build())
	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fact.Fields) != 1 || fact.Fields[0].Name != "open" {
		t.Fatalf("expected only the public field by default, got %+v", fact.Fields)
	}

	opts := DefaultOptions()
	opts.IgnoreVisibilityFields = true
	src = bytesource.OpenBuffer("Hidden.class", b.build())
	fact, err = Decode(src, 0, opts)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fact.Fields) != 2 {
		t.Fatalf("expected both fields with IgnoreVisibilityFields, got %+v", fact.Fields)
	}
}

func TestDecode_methodWithExceptionsAndParameters(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.Svc")
	b.setSuperClass("java.lang.Object")

	m := b.addMethod(accPublic, "fetch", "(Ljava/lang/String;)V")
	excIdx := b.addClass("java.io.IOException")
	b.memberAttr(m, "Exceptions", u16bytes(1, excIdx))
	paramName := b.addUtf8("url")
	var mp bytes.Buffer
	mp.WriteByte(1) // parameters_count (u8)
	binary.Write(&mp, binary.BigEndian, paramName)
	binary.Write(&mp, binary.BigEndian, uint16(0x0010)) // final
	b.memberAttr(m, "MethodParameters", mp.Bytes())

	src := bytesource.OpenBuffer("Svc.class", b.build())
	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fact.Methods) != 1 {
		t.Fatalf("expected 1 method, got %d", len(fact.Methods))
	}
	got := fact.Methods[0]
	if len(got.Exceptions) != 1 || got.Exceptions[0] != "java.io.IOException" {
		t.Errorf("expected throws java.io.IOException, got %v", got.Exceptions)
	}
	if len(got.Parameters) != 1 || got.Parameters[0].Name != "url" || !got.Parameters[0].Final {
		t.Errorf("expected final parameter url, got %+v", got.Parameters)
	}
}

func TestDecode_annotationElementValues(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.Elem")
	b.setSuperClass("java.lang.Object")

	attrNameIdx := b.addUtf8("RuntimeVisibleAnnotations")
	typeIdx := b.addUtf8("Lcom/x/Tag;")
	strName := b.addUtf8("label")
	strVal := b.addUtf8("hello")
	enumName := b.addUtf8("mode")
	enumType := b.addUtf8("Lcom/x/Mode;")
	enumConst := b.addUtf8("FAST")
	arrName := b.addUtf8("counts")
	one := b.addInteger(1)
	two := b.addInteger(2)

	var body bytes.Buffer
	binary.Write(&body, binary.BigEndian, uint16(1)) // num_annotations
	binary.Write(&body, binary.BigEndian, typeIdx)
	binary.Write(&body, binary.BigEndian, uint16(3)) // pairs
	binary.Write(&body, binary.BigEndian, strName)
	body.WriteByte('s')
	binary.Write(&body, binary.BigEndian, strVal)
	binary.Write(&body, binary.BigEndian, enumName)
	body.WriteByte('e')
	binary.Write(&body, binary.BigEndian, enumType)
	binary.Write(&body, binary.BigEndian, enumConst)
	binary.Write(&body, binary.BigEndian, arrName)
	body.WriteByte('[')
	binary.Write(&body, binary.BigEndian, uint16(2))
	body.WriteByte('I')
	binary.Write(&body, binary.BigEndian, one)
	body.WriteByte('I')
	binary.Write(&body, binary.BigEndian, two)

	binary.Write(&b.classAttrs, binary.BigEndian, attrNameIdx)
	binary.Write(&b.classAttrs, binary.BigEndian, uint32(body.Len()))
	b.classAttrs.Write(body.Bytes())
	b.classAttrN++

	src := bytesource.OpenBuffer("Elem.class", b.build())
	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(fact.Annotations) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(fact.Annotations))
	}
	ann := fact.Annotations[0]
	if ann.TypeName != "com.x.Tag" {
		t.Errorf("expected com.x.Tag, got %s", ann.TypeName)
	}
	if v := ann.Elements["label"]; v.Tag != EVConst || v.ConstString != "hello" {
		t.Errorf("label = %+v, want string hello", v)
	}
	if v := ann.Elements["mode"]; v.Tag != EVEnum || v.EnumType != "com.x.Mode" || v.EnumName != "FAST" {
		t.Errorf("mode = %+v, want enum com.x.Mode.FAST", v)
	}
	v := ann.Elements["counts"]
	if v.Tag != EVArray || len(v.Array) != 2 || v.Array[0].ConstString != "1" || v.Array[1].ConstString != "2" {
		t.Errorf("counts = %+v, want [1 2]", v)
	}
}

func TestDecode_unknownAttributeSkipped(t *testing.T) {
	b := newClassBuilder()
	b.setThisClass("com.x.Odd")
	b.setSuperClass("java.lang.Object")

	attrNameIdx := b.addUtf8("SomeVendorAttribute")
	body := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	binary.Write(&b.classAttrs, binary.BigEndian, attrNameIdx)
	binary.Write(&b.classAttrs, binary.BigEndian, uint32(len(body)))
	b.classAttrs.Write(body)
	b.classAttrN++

	src := bytesource.OpenBuffer("Odd.class", b.build())
	fact, err := Decode(src, 0, DefaultOptions())
	if err != nil {
		t.Fatalf("expected unknown attribute to be skipped, got %v", err)
	}
	if fact.Name != "com.x.Odd" {
		t.Errorf("expected com.x.Odd, got %s", fact.Name)
	}
}
