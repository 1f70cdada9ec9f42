package diagnostics

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ethercat-master/internal/dc"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diagnostics.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSubdevices(t *testing.T) []dc.SubDevice {
	t.Helper()
	subdevices := []dc.SubDevice{
		{ConfiguredAddress: 0x1001, Index: 0, DCCapable: true, Ports: dc.NewPorts(true, false, true, false)},
		{ConfiguredAddress: 0x1002, Index: 1, DCCapable: true, Ports: dc.NewPorts(true, false, false, false)},
	}
	subdevices[0].Ports.SetReceiveTimes(100, 0, 250, 0)
	subdevices[1].Ports.SetReceiveTimes(300, 0, 0, 0)
	if err := dc.ReconstructAndComputeDelays(subdevices); err != nil {
		t.Fatalf("ReconstructAndComputeDelays: %v", err)
	}
	return subdevices
}

func TestRecordAndListRun(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	subdevices := sampleSubdevices(t)
	run := NewRun(time.Now(), subdevices)
	if !run.HasReference || run.ReferenceAddress != 0x1001 {
		t.Fatalf("NewRun reference = %+v, want addr 0x1001", run)
	}

	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != run.ID {
		t.Errorf("ID = %s, want %s", got.ID, run.ID)
	}
	if len(got.SubDevices) != len(subdevices) {
		t.Fatalf("len(SubDevices) = %d, want %d", len(got.SubDevices), len(subdevices))
	}
	if got.SubDevices[1].ParentIndex != 0 || !got.SubDevices[1].HasParent {
		t.Errorf("SubDevices[1] = %+v, want parent index 0", got.SubDevices[1])
	}
}

func TestListRunsRespectsLimit(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()
	subdevices := sampleSubdevices(t)

	for i := 0; i < 3; i++ {
		run := NewRun(time.Now().Add(time.Duration(i)*time.Second), subdevices)
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun %d: %v", i, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
}

func TestReportIncludesTopologyAndDelay(t *testing.T) {
	t.Parallel()
	subdevices := sampleSubdevices(t)
	run := NewRun(time.Now(), subdevices)

	text := Report(run)
	if text == "" {
		t.Fatalf("Report returned an empty string")
	}
	if !strings.Contains(text, "Fork") && !strings.Contains(text, "LineEnd") {
		t.Errorf("Report missing expected topology labels:\n%s", text)
	}
	if !strings.Contains(text, "75 ns") {
		t.Errorf("Report missing subdevice 1's 75 ns propagation delay:\n%s", text)
	}
}
