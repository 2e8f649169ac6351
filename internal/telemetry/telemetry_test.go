package telemetry

import "testing"

func TestCollectorRecord(t *testing.T) {
	c := NewCollector()
	c.RecordCall("shell")
	c.RecordCall("shell")
	c.RecordDenied("shell")
	c.RecordConfirmRequested("delegate")
	c.RecordVaulted("memory_store")

	snap := c.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot entries = %d, want 3", len(snap))
	}

	var shell *ToolTelemetry
	for i := range snap {
		if snap[i].ToolName == "shell" {
			shell = &snap[i]
		}
	}
	if shell == nil {
		t.Fatal("missing shell entry")
	}
	if shell.CallCount != 2 {
		t.Errorf("shell.CallCount = %d, want 2", shell.CallCount)
	}
	if shell.DeniedCount != 1 {
		t.Errorf("shell.DeniedCount = %d, want 1", shell.DeniedCount)
	}
}

func TestCollectorSnapshotReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.RecordCall("tool")

	snap1 := c.Snapshot()
	snap1[0].CallCount = 999

	snap2 := c.Snapshot()
	if snap2[0].CallCount != 1 {
		t.Error("Snapshot should return copies, not references")
	}
}

func TestCollectorEmptySnapshot(t *testing.T) {
	c := NewCollector()
	if got := len(c.Snapshot()); got != 0 {
		t.Errorf("empty snapshot has %d entries", got)
	}
}
