package seedstore

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "seeds.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutPreservesInsertionOrder(t *testing.T) {
	s := openTestStore(t)

	endpoints := []string{"c.example.com:1776", "a.example.com:1776", "b.example.com:1776"}
	for _, e := range endpoints {
		if err := s.Put("bts", e); err != nil {
			t.Fatalf("put %s: %v", e, err)
		}
	}

	got, err := s.Seeds("bts")
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if !reflect.DeepEqual(got, endpoints) {
		t.Errorf("seeds = %v, want insertion order %v", got, endpoints)
	}
}

func TestPutRejectsDuplicate(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("bts", "seed.example.com:1776"); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := s.Put("bts", "seed.example.com:1776")
	if !errors.Is(err, ErrSeedExists) {
		t.Errorf("duplicate put error = %v, want ErrSeedExists", err)
	}

	// The same endpoint under another chain is fine.
	if err := s.Put("steem", "seed.example.com:1776"); err != nil {
		t.Errorf("cross-chain put: %v", err)
	}
}

func TestRemove(t *testing.T) {
	s := openTestStore(t)

	for _, e := range []string{"one:1", "two:2", "three:3"} {
		if err := s.Put("bts", e); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := s.Remove("bts", "two:2"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, err := s.Seeds("bts")
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	want := []string{"one:1", "three:3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("seeds after remove = %v, want %v", got, want)
	}

	if err := s.Remove("bts", "two:2"); !errors.Is(err, ErrSeedNotFound) {
		t.Errorf("second remove error = %v, want ErrSeedNotFound", err)
	}
	if err := s.Remove("muse", "one:1"); !errors.Is(err, ErrSeedNotFound) {
		t.Errorf("unknown chain remove error = %v, want ErrSeedNotFound", err)
	}
}

func TestSeedsUnknownChainEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Seeds("nosuchchain")
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("seeds = %v, want empty for unknown chain", got)
	}
}

func TestEnsureDefaults(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnsureDefaults(); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	chains, err := s.Chains()
	if err != nil {
		t.Fatalf("chains: %v", err)
	}
	if !reflect.DeepEqual(chains, DefaultChains()) {
		t.Errorf("chains = %v, want %v", chains, DefaultChains())
	}

	seeds, err := s.Seeds("bts")
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if !reflect.DeepEqual(seeds, DefaultSeeds("bts")) {
		t.Errorf("bts defaults not installed: got %d entries", len(seeds))
	}

	// A populated chain is left untouched on a second run.
	if err := s.Remove("bts", seeds[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.EnsureDefaults(); err != nil {
		t.Fatalf("ensure defaults again: %v", err)
	}
	after, err := s.Seeds("bts")
	if err != nil {
		t.Fatalf("seeds: %v", err)
	}
	if len(after) != len(seeds)-1 {
		t.Errorf("second EnsureDefaults modified a populated chain: %d entries, want %d", len(after), len(seeds)-1)
	}
}
