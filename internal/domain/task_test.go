package domain

import (
	"testing"
	"time"
)

// ─── Lifecycle Edges ────────────────────────────────────────────────────────

func TestCanTransition_LegalEdges(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusBlocked},
		{StatusInProgress, StatusBlocked},
		{StatusInProgress, StatusCompleted},
		{StatusBlocked, StatusPending},
	}
	for _, e := range legal {
		if !CanTransition(e.from, e.to) {
			t.Errorf("CanTransition(%s, %s) = false, want true", e.from, e.to)
		}
	}
}

func TestCanTransition_IllegalEdges(t *testing.T) {
	illegal := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusBlocked, StatusInProgress},
		{StatusBlocked, StatusCompleted},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusInProgress},
		{StatusCompleted, StatusBlocked},
		{StatusInProgress, StatusPending},
	}
	for _, e := range illegal {
		if CanTransition(e.from, e.to) {
			t.Errorf("CanTransition(%s, %s) = true, want false", e.from, e.to)
		}
	}
}

func TestStatus_Active(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusInProgress, StatusBlocked} {
		if !s.Active() {
			t.Errorf("%s.Active() = false, want true", s)
		}
	}
	if StatusCompleted.Active() {
		t.Error("COMPLETED.Active() = true, want false")
	}
}

// ─── Priority ───────────────────────────────────────────────────────────────

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"P1", P1, false},
		{"p3", P3, false},
		{"4", P4, false},
		{"P5", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePriority(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriority(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ─── Criteria & Staleness ───────────────────────────────────────────────────

func TestCriteriaDone(t *testing.T) {
	task := Task{Criteria: []Criterion{
		{Text: "a", Checked: true},
		{Text: "b", Checked: false},
	}}
	if task.CriteriaDone() {
		t.Error("CriteriaDone() = true with an unchecked criterion")
	}
	task.Criteria[1].Checked = true
	if !task.CriteriaDone() {
		t.Error("CriteriaDone() = false with all checked")
	}
	empty := Task{}
	if !empty.CriteriaDone() {
		t.Error("CriteriaDone() = false for task without criteria")
	}
}

func TestStale(t *testing.T) {
	now := time.Now()
	task := Task{Status: StatusInProgress, StartedAt: now.Add(-2 * time.Hour)}
	if !task.Stale(time.Hour, now) {
		t.Error("Stale() = false for task running 2h past a 1h threshold")
	}
	if task.Stale(0, now) {
		t.Error("Stale() = true with threshold disabled")
	}
	pending := Task{Status: StatusPending, CreatedAt: now.Add(-48 * time.Hour)}
	if pending.Stale(time.Hour, now) {
		t.Error("Stale() = true for a pending task")
	}
}
