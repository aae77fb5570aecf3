package store

import (
	"fmt"
	"sync"
	"testing"
)

func TestStore_UpdateAndGet(t *testing.T) {
	s := New()

	if _, ok := s.Get("github"); ok {
		t.Error("Get() ok = true on empty store, want false")
	}

	s.Update(ScanResult{Site: "github", Status: "found", StatusCode: 200})

	got, ok := s.Get("github")
	if !ok {
		t.Fatal("Get() ok = false after Update, want true")
	}
	if got.Status != "found" || got.StatusCode != 200 {
		t.Errorf("Get() = %+v, want found/200", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_UpdateReplaces(t *testing.T) {
	s := New()

	s.Update(ScanResult{Site: "github", Status: "error"})
	s.Update(ScanResult{Site: "github", Status: "found"})

	got, _ := s.Get("github")
	if got.Status != "found" {
		t.Errorf("Status = %q after second update, want %q", got.Status, "found")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after repeated updates, want 1", s.Len())
	}
}

func TestStore_SnapshotOrder(t *testing.T) {
	s := New()

	s.Update(ScanResult{Site: "gamma", Status: "found"})
	s.Update(ScanResult{Site: "alpha", Status: "not_found"})
	s.Update(ScanResult{Site: "beta", Status: "found"})
	// re-reporting must not move gamma from the front
	s.Update(ScanResult{Site: "gamma", Status: "error"})

	snapshot := s.Snapshot()
	wantOrder := []string{"gamma", "alpha", "beta"}
	if len(snapshot) != len(wantOrder) {
		t.Fatalf("len(Snapshot()) = %d, want %d", len(snapshot), len(wantOrder))
	}
	for i, want := range wantOrder {
		if snapshot[i].Site != want {
			t.Errorf("Snapshot()[%d].Site = %q, want %q", i, snapshot[i].Site, want)
		}
	}
	if snapshot[0].Status != "error" {
		t.Errorf("Snapshot()[0].Status = %q, want the replacing value", snapshot[0].Status)
	}
}

func TestStore_Summary(t *testing.T) {
	s := New()

	s.Update(ScanResult{Site: "a", Status: "found"})
	s.Update(ScanResult{Site: "b", Status: "found"})
	s.Update(ScanResult{Site: "c", Status: "not_found"})
	s.Update(ScanResult{Site: "d", Status: "error"})

	summary := s.Summary()
	if summary["found"] != 2 {
		t.Errorf(`Summary()["found"] = %d, want 2`, summary["found"])
	}
	if summary["not_found"] != 1 {
		t.Errorf(`Summary()["not_found"] = %d, want 1`, summary["not_found"])
	}
	if summary["error"] != 1 {
		t.Errorf(`Summary()["error"] = %d, want 1`, summary["error"])
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()

	const writers = 10
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Update(ScanResult{
					Site:   fmt.Sprintf("site-%d-%d", w, i),
					Status: "found",
				})
				_ = s.Snapshot()
				_ = s.Summary()
			}
		}(w)
	}
	wg.Wait()

	if s.Len() != writers*perWriter {
		t.Errorf("Len() = %d, want %d", s.Len(), writers*perWriter)
	}
}
