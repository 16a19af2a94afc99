package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/benchfn/internal/store"
)

func TestSelectRunsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{ID: "run2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{ID: "run3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{ID: "run4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}

	toDelete := selectRunsForDeletion(infos, 0, 7, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	if !containsRun(toDelete, "run1") || !containsRun(toDelete, "run4") {
		t.Error("Expected run1 and run4 to be selected for deletion")
	}
}

func TestSelectRunsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}

	toDelete := selectRunsForDeletion(infos, 2, 0, now)

	if len(toDelete) != 2 {
		t.Fatalf("Expected 2 runs to delete, got %d", len(toDelete))
	}
	if !containsRun(toDelete, "run4") || !containsRun(toDelete, "run1") {
		t.Error("Expected run4 and run1 (oldest) to be selected for deletion")
	}
}

func TestSelectRunsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{
		{ID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "run4", Timestamp: now.AddDate(0, 0, -30)},
		{ID: "run5", Timestamp: now.AddDate(0, 0, -2)},
	}

	// Age selects run1 and run4, count selects the same two
	toDelete := selectRunsForDeletion(infos, 3, 7, now)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 runs to delete without duplicates, got %d", len(toDelete))
	}
}

func TestSelectRunsForDeletion_KeepAll(t *testing.T) {
	now := time.Now()
	infos := []store.RunInfo{{ID: "run1", Timestamp: now}}
	if toDelete := selectRunsForDeletion(infos, 5, 0, now); len(toDelete) != 0 {
		t.Errorf("Expected nothing to delete, got %d", len(toDelete))
	}
}

func containsRun(infos []store.RunInfo, id string) bool {
	for _, info := range infos {
		if info.ID == id {
			return true
		}
	}
	return false
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(abc) = %s", got)
	}
	if got := shortID("0123456789abcdef"); got != "0123456789ab..." {
		t.Errorf("shortID truncation = %s", got)
	}
}

func saveTestRun(t *testing.T, dir string, age time.Duration) *store.Run {
	t.Helper()
	runStore, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	run := store.NewRun(store.RunConfig{Function: "rosenbrock", Dims: 2, Method: "bfgs", Iters: 10})
	run.BestX = []float64{1, 1}
	run.Timestamp = time.Now().Add(-age)
	if err := runStore.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	return run
}

func TestRunsListCommand_NoRuns(t *testing.T) {
	originalDir := runsDataDir
	runsDataDir = t.TempDir()
	defer func() { runsDataDir = originalDir }()

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestRunsListAndShowCommand(t *testing.T) {
	tmpDir := t.TempDir()
	run := saveTestRun(t, tmpDir, 0)

	originalDir := runsDataDir
	runsDataDir = tmpDir
	defer func() { runsDataDir = originalDir }()

	if err := runListRuns(nil, nil); err != nil {
		t.Errorf("list failed: %v", err)
	}
	if err := runShowRun(nil, []string{run.ID}); err != nil {
		t.Errorf("show failed: %v", err)
	}
	if err := runShowRun(nil, []string{"missing"}); err == nil {
		t.Error("Expected error for missing run")
	}
}

func TestRunsCleanCommand_NoFlags(t *testing.T) {
	originalDir := runsDataDir
	runsDataDir = t.TempDir()
	defer func() { runsDataDir = originalDir }()

	keepLast = 0
	olderThanDays = 0

	if err := runCleanRuns(nil, nil); err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestRunsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()
	old := saveTestRun(t, tmpDir, 30*24*time.Hour)
	recent := saveTestRun(t, tmpDir, time.Hour)

	originalDir := runsDataDir
	runsDataDir = tmpDir
	defer func() {
		runsDataDir = originalDir
		keepLast, olderThanDays, forceClean = 0, 0, false
	}()

	keepLast = 0
	olderThanDays = 7
	forceClean = true

	if err := runCleanRuns(nil, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	runStore, _ := store.NewFSStore(tmpDir)
	if _, err := runStore.LoadRun(old.ID); err == nil {
		t.Error("Expected old run to be deleted")
	}
	if _, err := runStore.LoadRun(recent.ID); err != nil {
		t.Errorf("Expected recent run to survive, got %v", err)
	}
}

func TestRunsDeleteCommand(t *testing.T) {
	tmpDir := t.TempDir()
	run := saveTestRun(t, tmpDir, 0)

	originalDir := runsDataDir
	runsDataDir = tmpDir
	defer func() { runsDataDir = originalDir }()

	if err := runDeleteRuns(nil, []string{run.ID}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := runDeleteRuns(nil, []string{run.ID}); err == nil {
		t.Error("Expected error deleting a missing run")
	}
}

func TestMinimizeCommand(t *testing.T) {
	tmpDir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"minimize", "--dims", "2", "--method", "bfgs", "--seed", "3", "--store-dir", tmpDir, "--log-level", "error",
	})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("minimize failed: %v", err)
	}
	if !strings.Contains(out.String(), "Best f:") {
		t.Errorf("Unexpected output: %s", out.String())
	}

	runStore, _ := store.NewFSStore(tmpDir)
	infos, err := runStore.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Method != "bfgs" {
		t.Errorf("Expected one stored bfgs run, got %+v", infos)
	}
}
