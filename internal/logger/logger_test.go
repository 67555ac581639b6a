package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	if realGot != filepath.Join(realTmpDir, defaultLogDirName) {
		t.Fatalf("unexpected log dir: %s", realGot)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestNewReleaseWritesJSONToFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().Infow("cart_add_test", "user_id", 7)
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"message":"cart_add_test"`) {
		t.Fatalf("expected json message field, got=%s", text)
	}
	if !strings.Contains(text, `"user_id":7`) {
		t.Fatalf("expected structured field, got=%s", text)
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New(" Debug ", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestZFallsBackWhenUninitialized(t *testing.T) {
	previous := L
	L = nil
	t.Cleanup(func() { L = previous })

	if Z() == nil {
		t.Fatalf("fallback logger should never be nil")
	}
	if SW() == nil || SW("k", "v") == nil {
		t.Fatalf("sugared logger should never be nil")
	}
}

func TestPositiveOr(t *testing.T) {
	if positiveOr(0, 5) != 5 || positiveOr(-1, 5) != 5 || positiveOr(3, 5) != 3 {
		t.Fatalf("positiveOr returned unexpected value")
	}
}
