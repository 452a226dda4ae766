package entrycache

import (
	"errors"
	"fmt"
	"testing"
)

func TestHitAvoidsReload(t *testing.T) {
	c := New(16)

	loads := 0
	load := func() ([]byte, error) { loads++; return []byte("contents"), nil }

	for range 3 {
		b, err := c.Get("a", load)
		if err != nil || string(b) != "contents" {
			t.Fatalf("got %q %v", b, err)
		}
	}
	if loads != 1 {
		t.Errorf("loaded %d times", loads)
	}
}

func TestLoadErrorNotCached(t *testing.T) {
	c := New(16)

	boom := errors.New("boom")
	if _, err := c.Get("a", func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}

	b, err := c.Get("a", func() ([]byte, error) { return []byte("ok"), nil })
	if err != nil || string(b) != "ok" {
		t.Errorf("got %q %v", b, err)
	}
}

func TestDistinctKeys(t *testing.T) {
	c := New(16)

	for i := range 4 {
		name := fmt.Sprintf("entry%d", i)
		b, err := c.Get(name, func() ([]byte, error) { return []byte(name), nil })
		if err != nil || string(b) != name {
			t.Errorf("got %q %v", b, err)
		}
	}
	for i := range 4 {
		name := fmt.Sprintf("entry%d", i)
		b, err := c.Get(name, func() ([]byte, error) {
			t.Errorf("unexpected reload of %s", name)
			return nil, nil
		})
		if err != nil || string(b) != name {
			t.Errorf("got %q %v", b, err)
		}
	}
}
