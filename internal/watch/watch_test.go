package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		event    fsnotify.Event
		wantType EventType
		wantOK   bool
	}{
		{"write yaml", fsnotify.Event{Name: "p.yaml", Op: fsnotify.Write}, EventChanged, true},
		{"create yml", fsnotify.Event{Name: "p.yml", Op: fsnotify.Create}, EventChanged, true},
		{"remove yaml", fsnotify.Event{Name: "p.yaml", Op: fsnotify.Remove}, EventRemoved, true},
		{"rename yaml", fsnotify.Event{Name: "p.yaml", Op: fsnotify.Rename}, EventRemoved, true},
		{"chmod yaml", fsnotify.Event{Name: "p.yaml", Op: fsnotify.Chmod}, "", false},
		{"write txt", fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			typ, ok := classify(tc.event)
			if ok != tc.wantOK || typ != tc.wantType {
				t.Errorf("classify = %s/%v, want %s/%v", typ, ok, tc.wantType, tc.wantOK)
			}
		})
	}
}

func TestWatcherReportsChange(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Stop()

	events, err := w.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	path := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(path, []byte("id: test\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.Type != EventChanged || ev.Path != path {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Stop()

	events, err := w.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected event for non-plan file: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStopClosesChannel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	events, err := w.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case _, open := <-events:
		if open {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Stop")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "ghost"), 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer w.Stop()

	if _, err := w.Start(context.Background()); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
