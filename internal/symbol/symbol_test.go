package symbol

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntern(t *testing.T) {
	tbl := NewTable()

	a := tbl.Intern("app")
	b := tbl.Intern("util")
	again := tbl.Intern("app")

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "app", tbl.Name(a))
	assert.Equal(t, "util", tbl.Name(b))
	assert.Equal(t, 2, tbl.Len())
}

func TestLookup(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Lookup("missing")
	assert.False(t, ok)

	h := tbl.Intern("present")
	got, ok := tbl.Lookup("present")
	require.True(t, ok)
	assert.Equal(t, h, got)
	assert.Equal(t, 1, tbl.Len(), "lookup must not create names")
}

func TestInvalidHandle(t *testing.T) {
	tbl := NewTable()
	assert.Contains(t, tbl.Name(Invalid), "invalid")
	assert.Contains(t, tbl.Name(Handle(7)), "invalid")
}

func TestConcurrentIntern(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	handles := make([]Handle, 50)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = tbl.Intern("shared")
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		assert.Equal(t, handles[0], h)
	}
	assert.Equal(t, 1, tbl.Len())
}
