package bytesource

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenBuffer(t *testing.T) {
	t.Run("reads fields in order", func(t *testing.T) {
		s := OpenBuffer("buf", []byte{0xCA, 0xFE, 0x00, 0x01, 0x12})
		defer s.Close()

		u32, err := s.U32()
		if err != nil {
			t.Fatalf("U32 failed: %v", err)
		}
		if u32 != 0xCAFE0001 {
			t.Errorf("expected 0xCAFE0001, got %#x", u32)
		}

		u8, err := s.U8()
		if err != nil {
			t.Fatalf("U8 failed: %v", err)
		}
		if u8 != 0x12 {
			t.Errorf("expected 0x12, got %#x", u8)
		}
	})

	t.Run("fails on truncated read", func(t *testing.T) {
		s := OpenBuffer("buf", []byte{0x01})
		defer s.Close()

		if _, err := s.U32(); err == nil {
			t.Fatal("expected error on truncated U32")
		}
	})

	t.Run("peek does not consume", func(t *testing.T) {
		s := OpenBuffer("buf", []byte{0xAB, 0xCD})
		defer s.Close()

		b, ok := s.PeekByte()
		if !ok || b != 0xAB {
			t.Fatalf("expected peek 0xAB, got %#x ok=%v", b, ok)
		}
		u8, err := s.U8()
		if err != nil || u8 != 0xAB {
			t.Fatalf("expected U8 0xAB after peek, got %#x err=%v", u8, err)
		}
	})

	t.Run("skip advances without retaining", func(t *testing.T) {
		s := OpenBuffer("buf", []byte{0x01, 0x02, 0x03, 0x04})
		defer s.Close()

		if err := s.Skip(2); err != nil {
			t.Fatalf("Skip failed: %v", err)
		}
		u16, err := s.U16()
		if err != nil {
			t.Fatalf("U16 failed: %v", err)
		}
		if u16 != 0x0304 {
			t.Errorf("expected 0x0304, got %#x", u16)
		}
	})

	t.Run("peek at EOF reports false", func(t *testing.T) {
		s := OpenBuffer("buf", nil)
		defer s.Close()

		if _, ok := s.PeekByte(); ok {
			t.Error("expected PeekByte to report false at EOF")
		}
	})
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.class")
	want := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer s.Close()

	if s.Length() != int64(len(want)) {
		t.Errorf("expected length %d, got %d", len(want), s.Length())
	}
	if s.Label() != path {
		t.Errorf("expected label %s, got %s", path, s.Label())
	}

	got, err := s.ReadN(len(want))
	if err != nil {
		t.Fatalf("ReadN failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOpenFile_missing(t *testing.T) {
	if _, err := OpenFile("/nonexistent/path/does/not/exist.class"); err == nil {
		t.Fatal("expected error opening a missing file")
	}
}

func TestOpenZipEntry(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "a.jar")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("com/example/Foo.class")
	if err != nil {
		t.Fatalf("zip Create failed: %v", err)
	}
	want := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("zip Write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close failed: %v", err)
	}
	f.Close()

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer zr.Close()

	s, err := OpenZipEntry(archivePath, zr.File[0])
	if err != nil {
		t.Fatalf("OpenZipEntry failed: %v", err)
	}
	defer s.Close()

	got, err := s.ReadN(len(want))
	if err != nil {
		t.Fatalf("ReadN failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
