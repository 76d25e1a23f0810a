package state

import (
	"context"
	"errors"
	"testing"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
)

// failingRepo fails every call with err.
type failingRepo struct{ err error }

func (f failingRepo) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingRepo) Set(context.Context, string, []byte) error         { return f.err }
func (f failingRepo) Delete(context.Context, string) error              { return f.err }

func TestStoreGetCreatesAndPersists(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	s := NewStore(repo, offsets.Default(), nil)

	p, err := s.Get(ctx, "med-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Q[0] != 0.5 || p.N[0] != 1 {
		t.Fatal("expected default prior")
	}
	if _, ok, _ := repo.Get(ctx, "policy:med-1"); !ok {
		t.Fatal("expected default to be persisted under policy:med-1")
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryRepository(), offsets.Default(), nil)

	p, _ := s.Get(ctx, "med-1")
	p = p.Clone()
	p.Q[10] = 0.75
	if err := s.Save(ctx, "med-1", p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "med-1", p); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, _ := s.Get(ctx, "med-1")
	if got.Q[10] != 0.75 {
		t.Fatalf("expected 0.75, got %f", got.Q[10])
	}
}

func TestStoreCorruptRecordReplaced(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Set(ctx, Key("med-1"), []byte("not json"))
	s := NewStore(repo, offsets.Default(), nil)

	p, err := s.Get(ctx, "med-1")
	if err != nil {
		t.Fatalf("corrupt record should not surface: %v", err)
	}
	if p.Q[0] != 0.5 {
		t.Fatal("expected default prior")
	}
	raw, _, _ := repo.Get(ctx, Key("med-1"))
	if _, err := Decode(raw, offsets.Default()); err != nil {
		t.Fatalf("expected repaired record, got %v", err)
	}
}

func TestStoreReset(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	s := NewStore(repo, offsets.Default(), nil)

	p, _ := s.Get(ctx, "med-1")
	p = p.Clone()
	p.Q[3] = 0.1
	s.Save(ctx, "med-1", p)

	if err := s.Reset(ctx, "med-1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected empty repository, got %d keys", repo.Len())
	}
	got, _ := s.Get(ctx, "med-1")
	if got.Q[3] != 0.5 {
		t.Fatal("expected fresh prior after reset")
	}
}

func TestStorePropagatesIOErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk gone")
	s := NewStore(failingRepo{err: boom}, offsets.Default(), nil)

	if _, err := s.Get(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("Get: expected wrapped boom, got %v", err)
	}
	if err := s.Save(ctx, "x", NewPolicy(offsets.Default())); !errors.Is(err, boom) {
		t.Errorf("Save: expected wrapped boom, got %v", err)
	}
	if err := s.Reset(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("Reset: expected wrapped boom, got %v", err)
	}
}

func TestMemoryRepositoryCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	in := []byte("abc")
	repo.Set(ctx, "k", in)
	in[0] = 'z'

	out, ok, _ := repo.Get(ctx, "k")
	if !ok || string(out) != "abc" {
		t.Fatalf("expected abc, got %q", out)
	}
	out[0] = 'y'
	again, _, _ := repo.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatal("Get returned shared memory")
	}
}
