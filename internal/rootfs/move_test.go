package rootfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.deb")
	dst := filepath.Join(dir, "moved.deb")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Errorf("destination content = %q, %v", data, err)
	}
}

func TestMoveDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "essential")
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "dpkg.deb"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "note"), []byte("two"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("dpkg.deb", filepath.Join(src, "alias")); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "packages", "essential")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := MoveDir(src, dst); err != nil {
		t.Fatalf("MoveDir failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists")
	}
	data, err := os.ReadFile(filepath.Join(dst, "dpkg.deb"))
	if err != nil || string(data) != "one" {
		t.Errorf("dpkg.deb = %q, %v", data, err)
	}
	data, err = os.ReadFile(filepath.Join(dst, "nested", "note"))
	if err != nil || string(data) != "two" {
		t.Errorf("nested/note = %q, %v", data, err)
	}
	if target, err := os.Readlink(filepath.Join(dst, "alias")); err != nil || target != "dpkg.deb" {
		t.Errorf("alias -> %q, %v", target, err)
	}
}

func TestCopyTreeFallback(t *testing.T) {
	src := filepath.Join(t.TempDir(), "bucket")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o640); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "bucket")
	if err := copyTree(src, dst); err != nil {
		t.Fatalf("copyTree failed: %v", err)
	}
	info, err := os.Stat(filepath.Join(dst, "f"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}
