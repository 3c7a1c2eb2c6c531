package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

func journalPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "edges.journal")
}

func TestJournal_AppendReplayRoundTrip(t *testing.T) {
	path := journalPath(t)

	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}

	var want []model.AuthEdge
	for i := 0; i < 5; i++ {
		e := storeEdge("account:alice", "host:web-01", "host:web-01",
			storeBaseTime.Add(time.Duration(i)*time.Second))
		e.Metadata = map[string]any{"seq": float64(i)}
		want = append(want, e)
		if err := j.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	j2, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer j2.Close()

	got, err := j2.Replay()
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Replay() returned %d edges, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("edge %d: ID = %s, want %s", i, got[i].ID, want[i].ID)
		}
		if !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("edge %d: Timestamp = %v, want %v", i, got[i].Timestamp, want[i].Timestamp)
		}
	}
}

func TestJournal_ReplayEmptyFile(t *testing.T) {
	j, err := OpenJournal(journalPath(t))
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	defer j.Close()

	edges, err := j.Replay()
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("Replay() returned %d edges from empty journal", len(edges))
	}
}

func TestJournal_TruncatedTailTolerated(t *testing.T) {
	path := journalPath(t)

	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		e := storeEdge("account:alice", "host:web-01", "host:web-01",
			storeBaseTime.Add(time.Duration(i)*time.Second))
		if err := j.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	j.Close()

	// Chop bytes off the last record, simulating a crash mid-write.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if err := os.Truncate(path, info.Size()-5); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}

	j2, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer j2.Close()

	edges, err := j2.Replay()
	if err != nil {
		t.Fatalf("Replay() error = %v after truncation", err)
	}
	if len(edges) != 2 {
		t.Errorf("Replay() returned %d edges, want 2 intact records", len(edges))
	}
}

func TestJournal_CorruptRecordStopsReplay(t *testing.T) {
	path := journalPath(t)

	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		e := storeEdge("account:alice", "host:web-01", "host:web-01", storeBaseTime)
		if err := j.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	j.Close()

	// Flip a payload byte in the second record. The first record header
	// is 8 bytes, so any byte near the end of the file lands in the
	// second record.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	data[len(data)-3] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	j2, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer j2.Close()

	edges, err := j2.Replay()
	if err != nil {
		t.Fatalf("Replay() error = %v on corrupt tail", err)
	}
	if len(edges) != 1 {
		t.Errorf("Replay() returned %d edges, want 1 before the corrupt record", len(edges))
	}
}

func TestJournal_AppendAfterCloseFails(t *testing.T) {
	j, err := OpenJournal(journalPath(t))
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	j.Close()

	e := storeEdge("account:alice", "host:web-01", "host:web-01", storeBaseTime)
	if err := j.Append(e); err != ErrStoreClosed {
		t.Errorf("Append() after close error = %v, want ErrStoreClosed", err)
	}
}

func TestJournaledEdgeStore_SurvivesRestart(t *testing.T) {
	path := journalPath(t)
	ctx := context.Background()

	s1, err := NewJournaledEdgeStore(path)
	if err != nil {
		t.Fatalf("NewJournaledEdgeStore() error = %v", err)
	}
	inserted := storeEdge("account:alice", "host:web-01", "host:web-01", storeBaseTime)
	if err := s1.Insert(ctx, inserted); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	s1.Close()

	s2, err := NewJournaledEdgeStore(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()

	all, err := s2.AllForGraph(ctx)
	if err != nil {
		t.Fatalf("AllForGraph() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != inserted.ID {
		t.Errorf("restart lost the journaled edge: %+v", all)
	}
}
