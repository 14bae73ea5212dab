package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	defer CloseAll()

	if err := Initialize(tempDir, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	for _, cat := range AllCategories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	QueueDebug("Convenience queue log")
	Linking("Convenience linking log")
	Store("Convenience store log")
	CloseAll()

	logsDir := filepath.Join(tempDir, ".spreadnet", "logs")
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	found := make(map[string]bool)
	for _, e := range entries {
		for _, cat := range AllCategories {
			if strings.HasSuffix(e.Name(), "_"+string(cat)+".log") {
				found[string(cat)] = true
			}
		}
	}
	for _, cat := range AllCategories {
		if !found[string(cat)] {
			t.Errorf("Missing log file for category %s", cat)
		}
	}

	data, err := os.ReadFile(filepath.Join(logsDir, entries[0].Name()))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected log file to contain entries")
	}
}

func TestProductionModeWritesNothing(t *testing.T) {
	tempDir := t.TempDir()
	defer CloseAll()

	if err := Initialize(tempDir, Options{DebugMode: false}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	Get(CategoryQueue).Error("should be dropped")
	Boot("should be dropped")

	if _, err := os.Stat(filepath.Join(tempDir, ".spreadnet", "logs")); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist in production mode, stat err=%v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()
	defer CloseAll()

	opts := Options{
		DebugMode:  true,
		Level:      "info",
		JSONFormat: true,
		Categories: map[string]bool{"field": false},
	}
	if err := Initialize(tempDir, opts); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsCategoryEnabled(CategoryField) {
		t.Error("field category should be disabled")
	}
	if !IsCategoryEnabled(CategoryQueue) {
		t.Error("unspecified categories should default to enabled")
	}
	if !IsJSONFormat() {
		t.Error("expected JSON format")
	}

	Get(CategoryQueue).With("thought", "t1").Info("structured %d", 1)
	CloseAll()

	matches, _ := filepath.Glob(filepath.Join(tempDir, ".spreadnet", "logs", "*_queue.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one queue log, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"thought":"t1"`) {
		t.Errorf("expected structured field in JSON log, got %s", data)
	}

	fieldLogs, _ := filepath.Glob(filepath.Join(tempDir, ".spreadnet", "logs", "*_field.log"))
	if len(fieldLogs) != 0 {
		t.Errorf("disabled category should not create a file, got %v", fieldLogs)
	}
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	if err := Initialize("", Options{}); err == nil {
		t.Error("expected error for empty workspace")
	}
}
