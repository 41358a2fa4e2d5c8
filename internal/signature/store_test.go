package signature

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutGet(t *testing.T) {
	s := New()
	_, ok := s.Get("toolu_1")
	assert.False(t, ok)

	s.Put("toolu_1", "sig-xyz")
	sig, ok := s.Get("toolu_1")
	assert.True(t, ok)
	assert.Equal(t, "sig-xyz", sig)
}

func TestTranslateFallback(t *testing.T) {
	s := New()
	assert.Equal(t, Fallback, s.Translate("unknown"))

	s.Put("toolu_1", "sig-xyz")
	assert.Equal(t, "sig-xyz", s.Translate("toolu_1"))
}

func TestGC(t *testing.T) {
	s := New()
	s.Put("a", "1")
	s.Put("b", "2")
	s.Put("c", "3")

	s.GC(map[string]bool{"b": true})

	_, ok := s.Get("a")
	assert.False(t, ok)
	_, ok = s.Get("b")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "toolu_concurrent"
			s.Put(id, "sig")
			s.Get(id)
		}(i)
	}
	wg.Wait()
	sig, ok := s.Get("toolu_concurrent")
	assert.True(t, ok)
	assert.Equal(t, "sig", sig)
}
