package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/rows"
	"github.com/vanderheijden86/tasktree/pkg/tasklist"
	"github.com/vanderheijden86/tasktree/pkg/testutil"
)

func fixture(t *testing.T) SnapshotOptions {
	t.Helper()
	tasks := []model.Task{
		testutil.Task("home", testutil.WithUrgency(7.2)),
		testutil.Task("paint <fence> & gate", testutil.Under("home")),
		testutil.Task("taxes", testutil.WithStatus(model.StatusCompleted)),
	}
	l := tasklist.New(tasklist.DefaultOptions())
	if err := l.Refresh(tasks); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return SnapshotOptions{
		Title: "Snapshot",
		Rows:  l.All(),
		Tasks: l.Tasks(),
	}
}

func TestSaveSnapshotSVGIsValidXML(t *testing.T) {
	opts := fixture(t)
	opts.Path = filepath.Join(t.TempDir(), "tree.svg")

	if _, err := SaveSnapshot(opts); err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}
	content, err := os.ReadFile(opts.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	var doc struct {
		XMLName xml.Name
	}
	if err := xml.Unmarshal(content, &doc); err != nil {
		t.Fatalf("SVG is not valid XML: %v\n%s", err, content)
	}
	if doc.XMLName.Local != "svg" {
		t.Errorf("expected <svg> root, got <%s>", doc.XMLName.Local)
	}
	s := string(content)
	if !strings.Contains(s, "paint &lt;fence&gt; &amp; gate") {
		t.Errorf("expected escaped description in output")
	}
	if got := strings.Count(s, `class="row"`); got != len(opts.Rows) {
		t.Errorf("expected %d row groups, got %d", len(opts.Rows), got)
	}
	if !strings.Contains(s, "7.2") {
		t.Errorf("expected urgency label for pending task")
	}
}

func TestSaveSnapshotPNG(t *testing.T) {
	opts := fixture(t)
	opts.Path = filepath.Join(t.TempDir(), "nested", "tree.png")

	if _, err := SaveSnapshot(opts); err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}
	content, err := os.ReadFile(opts.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(content, []byte("\x89PNG\r\n\x1a\n")) {
		t.Errorf("expected PNG signature, got % x", content[:8])
	}
}

func TestSaveSnapshotAppendsExtension(t *testing.T) {
	opts := fixture(t)
	base := filepath.Join(t.TempDir(), "tree")
	opts.Path = base

	path, err := SaveSnapshot(opts)
	if err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}
	if path != base+".svg" {
		t.Errorf("expected %s.svg, got %s", base, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s.svg: %v", base, err)
	}
}

func TestSaveSnapshotErrors(t *testing.T) {
	opts := fixture(t)

	if _, err := SaveSnapshot(opts); err == nil {
		t.Error("expected error for missing path")
	}

	opts.Path = filepath.Join(t.TempDir(), "tree.gif")
	if _, err := SaveSnapshot(opts); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported format error, got %v", err)
	}

	opts.Path = filepath.Join(t.TempDir(), "tree.svg")
	opts.Rows = nil
	if _, err := SaveSnapshot(opts); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name, path string
		want       Format
		wantErr    bool
	}{
		{"", "out.svg", FormatSVG, false},
		{"", "out.PNG", FormatPNG, false},
		{"", "out", FormatSVG, false},
		{"png", "out.svg", FormatPNG, false},
		{".SVG", "", FormatSVG, false},
		{"", "out.jpg", "", true},
		{"pdf", "out.svg", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q, %q) err = %v", tt.name, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q, %q) = %q, want %q", tt.name, tt.path, got, tt.want)
		}
	}
}

func TestBuildLayout(t *testing.T) {
	opts := fixture(t)
	opts.Generated = time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	layout := buildLayout(opts)

	if len(layout.Rows) != len(opts.Rows) {
		t.Fatalf("expected %d layout rows, got %d", len(opts.Rows), len(layout.Rows))
	}
	for i, r := range opts.Rows {
		lr := layout.Rows[i]
		if lr.X != margin+r.Depth*indentStep {
			t.Errorf("row %d: x = %d for depth %d", i, lr.X, r.Depth)
		}
		if lr.Header == r.IsTask() {
			t.Errorf("row %d: header flag mismatch", i)
		}
		if i > 0 && lr.Y-layout.Rows[i-1].Y != lineHeight {
			t.Errorf("row %d: uneven spacing", i)
		}
	}
	if !strings.Contains(layout.Summary, "2025-03-01 12:30 UTC") {
		t.Errorf("expected generated time in summary %q", layout.Summary)
	}
	if layout.Width < minWidth {
		t.Errorf("width %d below minimum", layout.Width)
	}
}

func TestBuildLayoutMissingTask(t *testing.T) {
	layout := buildLayout(SnapshotOptions{
		Rows: []rows.Row{{Kind: rows.KindTask, TaskID: testutil.ID("gone")}},
	})
	if layout.Rows[0].Text != "(missing task)" {
		t.Errorf("unexpected text %q", layout.Rows[0].Text)
	}
	if layout.Title != "Task tree" {
		t.Errorf("unexpected default title %q", layout.Title)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
