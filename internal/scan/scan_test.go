package scan

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/corescan/jscan/internal/bytesource"
	"github.com/corescan/jscan/internal/classfile"
	"github.com/corescan/jscan/internal/diagnostic"
	"github.com/corescan/jscan/internal/pathfilter"
	"github.com/corescan/jscan/internal/walker"
)

// minimalClassfile assembles just enough of the constant pool and classfile
// layout to drive a full scan: a this-class, optional
// superclass, and optional declared interfaces. No fields, methods, or
// attributes are emitted.
func minimalClassfile(flags uint16, thisName, superName string, interfaces []string) []byte {
	var pool bytes.Buffer
	count := uint16(1)
	addUtf8 := func(s string) uint16 {
		pool.WriteByte(1)
		binary.Write(&pool, binary.BigEndian, uint16(len(s)))
		pool.WriteString(s)
		count++
		return count - 1
	}
	addClass := func(dotted string) uint16 {
		internal := make([]byte, len(dotted))
		for i := 0; i < len(dotted); i++ {
			if dotted[i] == '.' {
				internal[i] = '/'
			} else {
				internal[i] = dotted[i]
			}
		}
		nameIdx := addUtf8(string(internal))
		pool.WriteByte(7)
		binary.Write(&pool, binary.BigEndian, nameIdx)
		count++
		return count - 1
	}

	thisIdx := addClass(thisName)
	var superIdx uint16
	if superName != "" {
		superIdx = addClass(superName)
	}
	ifaceIdxs := make([]uint16, len(interfaces))
	for i, iface := range interfaces {
		ifaceIdxs[i] = addClass(iface)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint32(0xCAFEBABE))
	binary.Write(&out, binary.BigEndian, uint16(0))  // minor
	binary.Write(&out, binary.BigEndian, uint16(61)) // major
	binary.Write(&out, binary.BigEndian, count)
	out.Write(pool.Bytes())
	binary.Write(&out, binary.BigEndian, flags)
	binary.Write(&out, binary.BigEndian, thisIdx)
	binary.Write(&out, binary.BigEndian, superIdx)
	binary.Write(&out, binary.BigEndian, uint16(len(ifaceIdxs)))
	for _, idx := range ifaceIdxs {
		binary.Write(&out, binary.BigEndian, idx)
	}
	binary.Write(&out, binary.BigEndian, uint16(0)) // fields_count
	binary.Write(&out, binary.BigEndian, uint16(0)) // methods_count
	binary.Write(&out, binary.BigEndian, uint16(0)) // attributes_count
	return out.Bytes()
}

const accInterface = 0x0200

func bufferRoot(index int, label string, data []byte) walker.Root {
	return walker.Root{Kind: walker.RootBuffer, Label: label, Data: data, Index: index}
}

func TestRun_sequentialScanAnswersQueries(t *testing.T) {
	roots := []walker.Root{
		bufferRoot(0, "A.class", minimalClassfile(0, "com.x.A", "java.lang.Object", nil)),
		bufferRoot(0, "B.class", minimalClassfile(0, "com.x.B", "com.x.A", nil)),
	}

	result, err := Run(context.Background(), Options{
		Roots:   roots,
		Matcher: pathfilter.NewClasspathMatcher(),
		Decode:  classfile.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	subs, err := result.Engine.SubclassesOf("com.x.A")
	if err != nil {
		t.Fatalf("SubclassesOf failed: %v", err)
	}
	if len(subs) != 1 || subs[0] != "com.x.B" {
		t.Fatalf("expected [com.x.B], got %v", subs)
	}
}

func TestRun_transitiveImplementsAcrossRoots(t *testing.T) {
	roots := []walker.Root{
		bufferRoot(0, "J.class", minimalClassfile(accInterface, "com.x.J", "", nil)),
		bufferRoot(0, "I.class", minimalClassfile(accInterface, "com.x.I", "", []string{"com.x.J"})),
		bufferRoot(0, "C.class", minimalClassfile(0, "com.x.C", "java.lang.Object", []string{"com.x.I"})),
	}

	result, err := Run(context.Background(), Options{
		Roots:   roots,
		Matcher: pathfilter.NewClasspathMatcher(),
		Decode:  classfile.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got, err := result.Engine.ClassesImplementing("com.x.J")
	if err != nil {
		t.Fatalf("ClassesImplementing failed: %v", err)
	}
	if len(got) != 1 || got[0] != "com.x.C" {
		t.Fatalf("expected [com.x.C], got %v", got)
	}
}

func TestRun_shadowingAcrossRoots(t *testing.T) {
	// Root 0 and root 1 each declare com.x.E with a different superclass;
	// the earlier root must win.
	roots := []walker.Root{
		{Kind: walker.RootBuffer, Label: "E0.class", Data: minimalClassfile(0, "com.x.E", "com.x.P", nil), Index: 0},
		{Kind: walker.RootBuffer, Label: "E1.class", Data: minimalClassfile(0, "com.x.E", "com.x.Q", nil), Index: 1},
	}

	result, err := Run(context.Background(), Options{
		Roots:   roots,
		Matcher: pathfilter.NewClasspathMatcher(),
		Decode:  classfile.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	node, ok := result.Graph.Class("com.x.E")
	if !ok {
		t.Fatal("expected com.x.E in the graph")
	}
	if node.SuperName != "com.x.P" {
		t.Errorf("expected root 0's superclass com.x.P to win, got %s", node.SuperName)
	}
	if got := result.Diagnostics.Count(diagnostic.EventShadowSkip); got != 1 {
		t.Errorf("expected 1 shadow-skip diagnostic, got %d", got)
	}
}

func TestRun_concurrentRootsProduceSameResultAsSequential(t *testing.T) {
	roots := []walker.Root{
		bufferRoot(0, "A.class", minimalClassfile(0, "com.x.A", "java.lang.Object", nil)),
		bufferRoot(1, "B.class", minimalClassfile(0, "com.x.B", "com.x.A", nil)),
		bufferRoot(2, "C.class", minimalClassfile(0, "com.x.C", "com.x.A", nil)),
	}

	result, err := Run(context.Background(), Options{
		Roots:       roots,
		Matcher:     pathfilter.NewClasspathMatcher(),
		Decode:      classfile.DefaultOptions(),
		Concurrency: 4,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	subs, err := result.Engine.SubclassesOf("com.x.A")
	if err != nil {
		t.Fatalf("SubclassesOf failed: %v", err)
	}
	sort.Strings(subs)
	if len(subs) != 2 || subs[0] != "com.x.B" || subs[1] != "com.x.C" {
		t.Fatalf("expected [com.x.B com.x.C], got %v", subs)
	}
}

func TestRun_resourcePatternInvokedDuringScan(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "tpl/a.html"), []byte("<html/>"))
	mustWriteFile(t, filepath.Join(dir, "tpl/sub/b.html"), []byte("<html/>"))

	var invoked []string
	roots := []walker.Root{{Kind: walker.RootDirectory, Path: dir, Index: 0}}

	result, err := Run(context.Background(), Options{
		Roots:   roots,
		Matcher: pathfilter.NewClasspathMatcher(),
		Decode:  classfile.DefaultOptions(),
		ResourcePatterns: map[string]PatternSpec{
			"templates": {
				Regexp: `^tpl/.*\.html$`,
				Callback: func(relPath string, src *bytesource.Source) error {
					invoked = append(invoked, relPath)
					return nil
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sort.Strings(invoked)
	if len(invoked) != 2 || invoked[0] != "tpl/a.html" || invoked[1] != "tpl/sub/b.html" {
		t.Fatalf("expected both template paths invoked, got %v", invoked)
	}

	matches := result.Engine.ResourceMatches()
	if len(matches) != 2 {
		t.Fatalf("expected 2 recorded resource matches, got %d", len(matches))
	}
}

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestRun_unknownNameAfterRunReturnsEmpty(t *testing.T) {
	roots := []walker.Root{
		bufferRoot(0, "A.class", minimalClassfile(0, "com.x.A", "java.lang.Object", nil)),
	}
	result, err := Run(context.Background(), Options{
		Roots:   roots,
		Matcher: pathfilter.NewClasspathMatcher(),
		Decode:  classfile.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// A finished Run always leaves the engine Scanned; a class-only query
	// against a name the scan never saw simply returns no results.
	subs, err := result.Engine.SubclassesOf("com.x.NoSuchClass")
	if err != nil {
		t.Fatalf("unexpected error querying an unencountered name: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected no subclasses for an unknown name, got %v", subs)
	}
}
