package usecase

import (
	"errors"
	"testing"

	"StockBoard/internal/domain/models"
)

func TestWatchlistCreateDefaultsAndList(t *testing.T) {
	s := NewWatchlistService()
	a := s.Create(1, "")
	if a.Name != DefaultWatchlistName || a.Items == nil {
		t.Fatalf("unexpected watchlist %+v", a)
	}
	s.Create(2, "Other")
	b := s.Create(1, "Tech")

	got := s.List(1)
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Fatalf("list: %+v", got)
	}
	if empty := s.List(9); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list")
	}
}

func TestWatchlistItemsAreUniquePerSymbol(t *testing.T) {
	s := NewWatchlistService()
	w := s.Create(1, "Tech")

	first, created, err := s.AddItem(w.ID, "aapl")
	if err != nil || !created || first.StockSymbol != "AAPL" {
		t.Fatalf("add: %+v created=%v err=%v", first, created, err)
	}
	again, created, err := s.AddItem(w.ID, "AAPL ")
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("duplicate add should return existing item: %+v created=%v err=%v", again, created, err)
	}

	other := s.Create(1, "Other")
	if _, created, _ := s.AddItem(other.ID, "AAPL"); !created {
		t.Fatalf("same symbol in another watchlist is a new item")
	}

	items, _ := s.Items(w.ID)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if _, _, err := s.AddItem(w.ID, ""); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("empty symbol: %v", err)
	}
	if _, _, err := s.AddItem(99, "AAPL"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing watchlist: %v", err)
	}
}

func TestWatchlistRemoveItemChecksOwnership(t *testing.T) {
	s := NewWatchlistService()
	a := s.Create(1, "A")
	b := s.Create(1, "B")
	item, _, _ := s.AddItem(a.ID, "MSFT")

	if err := s.RemoveItem(b.ID, item.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("item of another watchlist: %v", err)
	}
	if err := s.RemoveItem(a.ID, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveItem(a.ID, item.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("second remove: %v", err)
	}
}

func TestWatchlistRenameDelete(t *testing.T) {
	s := NewWatchlistService()
	w := s.Create(1, "Old")

	got, err := s.Rename(w.ID, "New")
	if err != nil || got.Name != "New" {
		t.Fatalf("rename: %+v %v", got, err)
	}
	if _, err := s.Rename(w.ID, " "); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("blank rename: %v", err)
	}
	if err := s.Delete(w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(w.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
	if err := s.Delete(w.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestWatchlistReturnsCopies(t *testing.T) {
	s := NewWatchlistService()
	w := s.Create(1, "A")
	_, _, _ = s.AddItem(w.ID, "AAPL")

	got, _ := s.Get(w.ID)
	got.Items[0].StockSymbol = "HACK"
	again, _ := s.Get(w.ID)
	if again.Items[0].StockSymbol != "AAPL" {
		t.Fatalf("stored watchlist mutated through a returned copy")
	}
}
