package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/greatapesociety/apebot/apebot/marketplace"
)

func testAssets() []marketplace.Asset {
	return []marketplace.Asset{
		{
			TokenID:   "1",
			Name:      "Great Ape #1",
			ImageURL:  "https://img/1.png",
			Permalink: "https://market/assets/0xabc/1",
			Traits: []marketplace.Trait{
				{TraitType: "Fur", Value: "Gold", TraitCount: 10},
				{TraitType: "IQ", Value: "140", TraitCount: 1},
			},
			SellOrders: []marketplace.SellOrder{{BasePrice: "2000000000000000000"}},
		},
		{
			TokenID: "2",
			Name:    "Great Ape #2",
			Traits: []marketplace.Trait{
				{TraitType: "Fur", Value: "Brown", TraitCount: 90},
			},
		},
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	if err := Save(testAssets(), path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	assets, modTime, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("len(assets) = %d, want 2", len(assets))
	}
	if assets[0].TokenID != "1" || len(assets[0].Traits) != 2 {
		t.Errorf("asset 0 = %+v", assets[0])
	}
	if modTime.IsZero() {
		t.Error("modTime should be set")
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := os.WriteFile(path, []byte(`{"not":"a list"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(path)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Load() error = %v, want ErrCorruptSnapshot", err)
	}
}

func TestIsStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := Save(testAssets(), path); err != nil {
		t.Fatal(err)
	}

	_, modTime, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	stale, err := IsStale(path, modTime)
	if err != nil || stale {
		t.Errorf("IsStale() = %v, %v; want false before change", stale, err)
	}

	// Bump the mtime well past filesystem timestamp granularity.
	future := modTime.Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	stale, err = IsStale(path, modTime)
	if err != nil || !stale {
		t.Errorf("IsStale() = %v, %v; want true after change", stale, err)
	}

	// After recording the new mtime it is fresh again until the next change.
	_, newMtime, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	stale, err = IsStale(path, newMtime)
	if err != nil || stale {
		t.Errorf("IsStale() = %v, %v; want false after reload", stale, err)
	}
}

type fakeFetcher struct {
	pages [][]marketplace.Asset
	errAt int // page index to fail at, -1 to never fail
	calls int
}

func (f *fakeFetcher) GetAssets(_ context.Context, offset, limit int) ([]marketplace.Asset, error) {
	idx := f.calls
	f.calls++
	if f.errAt >= 0 && idx == f.errAt {
		return nil, errors.New("boom")
	}
	if idx >= len(f.pages) {
		return nil, nil
	}
	return f.pages[idx], nil
}

func TestFetchAll(t *testing.T) {
	page1 := testAssets()[:1]
	page2 := testAssets()[1:]

	t.Run("paginates until empty page", func(t *testing.T) {
		f := &fakeFetcher{pages: [][]marketplace.Asset{page1, page2}, errAt: -1}
		assets, err := FetchAll(context.Background(), f, 1, 100)
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		if len(assets) != 2 {
			t.Errorf("len(assets) = %d, want 2", len(assets))
		}
		if f.calls != 3 {
			t.Errorf("calls = %d, want 3 (two pages + empty)", f.calls)
		}
	})

	t.Run("keeps partial progress on mid-pagination failure", func(t *testing.T) {
		f := &fakeFetcher{pages: [][]marketplace.Asset{page1, page2}, errAt: 1}
		assets, err := FetchAll(context.Background(), f, 1, 100)
		if err != nil {
			t.Fatalf("FetchAll() error = %v, want partial result", err)
		}
		if len(assets) != 1 {
			t.Errorf("len(assets) = %d, want 1", len(assets))
		}
	})

	t.Run("fails when nothing was fetched", func(t *testing.T) {
		f := &fakeFetcher{errAt: 0}
		_, err := FetchAll(context.Background(), f, 50, 100)
		if err == nil {
			t.Fatal("expected error when the first page fails")
		}
	})

	t.Run("stops at max offset", func(t *testing.T) {
		f := &fakeFetcher{pages: [][]marketplace.Asset{page1, page1, page1}, errAt: -1}
		_, err := FetchAll(context.Background(), f, 1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if f.calls != 2 {
			t.Errorf("calls = %d, want 2 (offsets 0 and 1)", f.calls)
		}
	})
}
