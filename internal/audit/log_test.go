package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 3, 1, 12, 30, 45, 123456000, time.UTC)
	}
}

func TestEnsureInitialized_CreatesEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)

	if err := log.EnsureInitialized(); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, DocumentFileName))
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	if string(raw["builds"]) != "[]" {
		t.Errorf("expected builds to be [], got %s", raw["builds"])
	}
	if string(raw["alerts"]) != "[]" {
		t.Errorf("expected alerts to be [], got %s", raw["alerts"])
	}
}

func TestEnsureInitialized_Idempotent(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Now = fixedClock()

	if _, err := log.AppendAlert(AlertSecurity, "first"); err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}
	before, err := os.ReadFile(log.Path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := log.EnsureInitialized(); err != nil {
			t.Fatalf("EnsureInitialized #%d failed: %v", i, err)
		}
	}

	after, err := os.ReadFile(log.Path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	if string(before) != string(after) {
		t.Errorf("EnsureInitialized modified an existing document:\nbefore: %s\nafter: %s", before, after)
	}
}

func TestAppendAlert_WritesDocumentAndMarker(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Now = fixedClock()

	alert, err := log.AppendAlert(AlertSecurity, "Unauthorized access attempt")
	if err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}

	wantTS := "2024-03-01T12:30:45.123456Z"
	if alert.Timestamp != wantTS {
		t.Errorf("expected timestamp %q, got %q", wantTS, alert.Timestamp)
	}

	doc, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(doc.Alerts))
	}
	if doc.Alerts[0].Message != "Unauthorized access attempt" {
		t.Errorf("unexpected alert message %q", doc.Alerts[0].Message)
	}
	if doc.Alerts[0].Type != AlertSecurity {
		t.Errorf("expected type %q, got %q", AlertSecurity, doc.Alerts[0].Type)
	}

	marker, err := os.ReadFile(filepath.Join(dir, AlertFileName))
	if err != nil {
		t.Fatalf("failed to read marker: %v", err)
	}
	want := "[ALERT] Unauthorized access attempt at " + wantTS + "\n"
	if string(marker) != want {
		t.Errorf("expected marker %q, got %q", want, marker)
	}
}

func TestAppendAlert_SerializedFieldNames(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Now = fixedClock()

	if _, err := log.AppendAlert(AlertSecurity, "x"); err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}

	data, err := os.ReadFile(log.Path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}

	var raw struct {
		Alerts []map[string]string `json:"alerts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	if raw.Alerts[0]["alert"] != "x" {
		t.Errorf("expected alert text under key \"alert\", got %v", raw.Alerts[0])
	}
	if raw.Alerts[0]["timestamp"] == "" {
		t.Errorf("expected timestamp key, got %v", raw.Alerts[0])
	}
}

func TestAppendAlert_MarkerHoldsOnlyLatest(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Now = fixedClock()

	if _, err := log.AppendAlert(AlertSecurity, "first"); err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}
	if _, err := log.AppendAlert(AlertBuild, "second"); err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}

	marker, err := os.ReadFile(log.AlertPath)
	if err != nil {
		t.Fatalf("failed to read marker: %v", err)
	}
	if strings.Contains(string(marker), "first") {
		t.Errorf("marker still contains the earlier alert: %q", marker)
	}
	if !strings.HasPrefix(string(marker), "[ALERT] second at ") {
		t.Errorf("unexpected marker %q", marker)
	}

	doc, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Alerts) != 2 || doc.Alerts[0].Message != "first" || doc.Alerts[1].Message != "second" {
		t.Errorf("expected alerts [first second] in order, got %+v", doc.Alerts)
	}
}

func TestAppendAlert_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	first := NewLog(dir)
	if _, err := first.AppendAlert(AlertSecurity, "before restart"); err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}

	// A fresh Log over the same directory stands in for a new process.
	second := NewLog(dir)
	if err := second.EnsureInitialized(); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}
	if _, err := second.AppendAlert(AlertSecurity, "after restart"); err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}

	doc, err := second.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(doc.Alerts))
	}
	if doc.Alerts[0].Message != "before restart" {
		t.Errorf("expected first alert to survive, got %q", doc.Alerts[0].Message)
	}
}

func TestAppendBuild_FillsIDAndTimestamp(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Now = fixedClock()

	stored, err := log.AppendBuild(BuildEvent{
		Filename:   "app.py",
		SourceType: SourceFile,
		Status:     BuildSucceeded,
		Hash:       "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		FileCount:  1,
	})
	if err != nil {
		t.Fatalf("AppendBuild failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if stored.Timestamp != "2024-03-01T12:30:45.123456Z" {
		t.Errorf("unexpected timestamp %q", stored.Timestamp)
	}

	doc, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Builds) != 1 {
		t.Fatalf("expected 1 build, got %d", len(doc.Builds))
	}
	if doc.Builds[0].ID != stored.ID {
		t.Errorf("stored ID %q does not match returned ID %q", doc.Builds[0].ID, stored.ID)
	}
	if len(doc.Alerts) != 0 {
		t.Errorf("AppendBuild should not add alerts, got %d", len(doc.Alerts))
	}
}

func TestAppendBuild_KeepsProvidedID(t *testing.T) {
	log := NewLog(t.TempDir())

	stored, err := log.AppendBuild(BuildEvent{ID: "fixed-id", Status: BuildFailed})
	if err != nil {
		t.Fatalf("AppendBuild failed: %v", err)
	}
	if stored.ID != "fixed-id" {
		t.Errorf("expected ID to be kept, got %q", stored.ID)
	}
}

func TestRead_MissingDocumentIsEmpty(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)

	doc, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Builds) != 0 || len(doc.Alerts) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
	if _, err := os.Stat(log.Path); !os.IsNotExist(err) {
		t.Error("Read should not create the document")
	}
}

func TestCorruptedLog_IsNotOverwritten(t *testing.T) {
	cases := map[string]string{
		"garbage":             "this is not json",
		"empty":               "",
		"array":               "[]",
		"null":                "null",
		"wrong type":          `{"builds": 5, "alerts": []}`,
		"alert not an object": `{"builds": [], "alerts": [5]}`,
		"trailing":            `{"builds": [], "alerts": []} {}`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			log := NewLog(dir)
			if err := os.WriteFile(log.Path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to seed document: %v", err)
			}

			if err := log.EnsureInitialized(); !errors.Is(err, kerrors.ErrCorruptedLog) {
				t.Errorf("EnsureInitialized: expected ErrCorruptedLog, got %v", err)
			}
			if _, err := log.AppendAlert(AlertSecurity, "x"); !errors.Is(err, kerrors.ErrCorruptedLog) {
				t.Errorf("AppendAlert: expected ErrCorruptedLog, got %v", err)
			}
			if _, err := log.AppendBuild(BuildEvent{}); !errors.Is(err, kerrors.ErrCorruptedLog) {
				t.Errorf("AppendBuild: expected ErrCorruptedLog, got %v", err)
			}

			after, err := os.ReadFile(log.Path)
			if err != nil {
				t.Fatalf("failed to read document: %v", err)
			}
			if string(after) != content {
				t.Errorf("corrupted document was modified: %q", after)
			}
		})
	}
}

func TestParseDocument_AcceptsLegacyAlerts(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"builds": [], "alerts": [{"timestamp": "2024-01-01T00:00:00", "alert": "old"}]}`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if len(doc.Alerts) != 1 || doc.Alerts[0].Message != "old" {
		t.Errorf("unexpected alerts %+v", doc.Alerts)
	}
	if doc.Alerts[0].Type != "" {
		t.Errorf("expected empty type for legacy alert, got %q", doc.Alerts[0].Type)
	}
}

func TestParseDocument_MissingKeysReadAsEmpty(t *testing.T) {
	doc, err := ParseDocument([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.Builds == nil || doc.Alerts == nil {
		t.Errorf("expected non-nil sequences, got %+v", doc)
	}
}

func TestAppend_ConcurrentWritersAllLand(t *testing.T) {
	dir := t.TempDir()
	const writers = 16

	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate Log values open separate lock descriptors, like
			// separate processes would.
			log := NewLog(dir)
			if _, err := log.AppendAlert(AlertSecurity, fmt.Sprintf("alert-%d", i)); err != nil {
				errs <- err
			}
			if _, err := log.AppendBuild(BuildEvent{Filename: fmt.Sprintf("build-%d", i), Status: BuildSucceeded}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent append failed: %v", err)
	}

	doc, err := NewLog(dir).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Alerts) != writers {
		t.Errorf("expected %d alerts, got %d", writers, len(doc.Alerts))
	}
	if len(doc.Builds) != writers {
		t.Errorf("expected %d builds, got %d", writers, len(doc.Builds))
	}

	seen := make(map[string]bool)
	for _, alert := range doc.Alerts {
		seen[alert.Message] = true
	}
	for i := 0; i < writers; i++ {
		if !seen[fmt.Sprintf("alert-%d", i)] {
			t.Errorf("alert-%d was lost", i)
		}
	}
}

func TestFiles_ListsOwnedPaths(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)

	files := log.Files()
	want := map[string]bool{
		filepath.Join(dir, DocumentFileName):         true,
		filepath.Join(dir, DocumentFileName+".lock"): true,
		filepath.Join(dir, AlertFileName):            true,
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), files)
	}
	for _, f := range files {
		if !want[f] {
			t.Errorf("unexpected file %q", f)
		}
	}
}

func TestAppend_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)

	for i := 0; i < 3; i++ {
		if _, err := log.AppendAlert(AlertSystem, "x"); err != nil {
			t.Fatalf("AppendAlert failed: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestAppendAlert_KeepsMembersWrittenByOtherTools(t *testing.T) {
	dir := t.TempDir()
	log := NewLog(dir)
	log.Now = fixedClock()

	seed := `{
  "version": 2,
  "builds": [{"id": "b1", "status": "success", "runner": {"host": "ci-3"}}],
  "alerts": [{"timestamp": "2024-01-01T00:00:00.000000Z", "alert": "old", "id": 7}]
}`
	if err := os.WriteFile(log.Path, []byte(seed), 0644); err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}

	if err := log.EnsureInitialized(); err != nil {
		t.Fatalf("EnsureInitialized failed: %v", err)
	}
	if _, err := log.AppendAlert(AlertSecurity, "Unauthorized access attempt"); err != nil {
		t.Fatalf("AppendAlert failed: %v", err)
	}

	data, err := os.ReadFile(log.Path)
	if err != nil {
		t.Fatalf("failed to read document: %v", err)
	}
	var raw struct {
		Version int `json:"version"`
		Builds  []struct {
			Runner struct {
				Host string `json:"host"`
			} `json:"runner"`
		} `json:"builds"`
		Alerts []struct {
			ID    int    `json:"id"`
			Alert string `json:"alert"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("rewritten document is not valid JSON: %v\n%s", err, data)
	}
	if raw.Version != 2 {
		t.Errorf("expected top-level version to survive, got %d", raw.Version)
	}
	if len(raw.Builds) != 1 || raw.Builds[0].Runner.Host != "ci-3" {
		t.Errorf("expected build runner to survive, got %+v", raw.Builds)
	}
	if len(raw.Alerts) != 2 || raw.Alerts[0].ID != 7 || raw.Alerts[1].Alert != "Unauthorized access attempt" {
		t.Errorf("unexpected alerts %+v", raw.Alerts)
	}

	doc, err := log.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(doc.Alerts[0].Extra["id"]) != "7" {
		t.Errorf("expected Extra[id] = 7, got %q", doc.Alerts[0].Extra["id"])
	}
	if doc.Alerts[1].Extra != nil {
		t.Errorf("new alert should have no extra members, got %v", doc.Alerts[1].Extra)
	}
}

func TestParseDocument_KnownFieldsAreNotDuplicatedAsExtra(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"Builds": [], "alerts": [{"Alert": "x", "timestamp": "t"}]}`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.Extra != nil || doc.Alerts[0].Extra != nil {
		t.Errorf("expected no extra members, got %v and %v", doc.Extra, doc.Alerts[0].Extra)
	}
	if doc.Alerts[0].Message != "x" {
		t.Errorf("expected message x, got %q", doc.Alerts[0].Message)
	}
}
