package defaults

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("PRICETOGGLE_DATA_DIR", tmpDir)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != tmpDir {
		t.Errorf("Expected %s, got %s", tmpDir, dir)
	}

	db, err := DatabasePath()
	if err != nil {
		t.Fatalf("DatabasePath failed: %v", err)
	}
	if db != filepath.Join(tmpDir, DatabaseFile) {
		t.Errorf("unexpected database path %s", db)
	}
}

func TestEnsureDataDir(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("PRICETOGGLE_DATA_DIR", tmpDir)

	dir, err := EnsureDataDir()
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Error("Data directory was not created")
	}
}

func TestWriteConfig(t *testing.T) {
	t.Setenv("PRICETOGGLE_DATA_DIR", t.TempDir())

	if ConfigPath() != "" {
		t.Fatal("ConfigPath should be empty before the file exists")
	}

	path, err := WriteConfig([]byte("server:\n  port: 3000\n"), false)
	if err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}
	if ConfigPath() != path {
		t.Errorf("Expected ConfigPath %s, got %s", path, ConfigPath())
	}

	if _, err := WriteConfig([]byte("x"), false); err == nil {
		t.Error("second write without overwrite should fail")
	}
	if _, err := WriteConfig([]byte("server: {}\n"), true); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "server: {}\n" {
		t.Errorf("unexpected content %q", data)
	}
}
