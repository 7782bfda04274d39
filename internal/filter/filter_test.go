package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRulesExcludedExt(t *testing.T) {
	r := New()
	r.AddExts(".tmp, .EXE")

	assert.True(t, r.ExcludedExt(".tmp"))
	assert.True(t, r.ExcludedExt(".TMP"))
	assert.True(t, r.ExcludedExt(".exe"))
	assert.False(t, r.ExcludedExt(".jpg"))
	assert.False(t, r.ExcludedExt(""))
}

func TestRulesTooLarge(t *testing.T) {
	r := New()
	assert.False(t, r.TooLarge(1<<40), "no limit set")

	r.SetMaxSize(100)
	assert.False(t, r.TooLarge(100))
	assert.True(t, r.TooLarge(101))
}

func TestRulesSkipDir(t *testing.T) {
	r := New()
	for _, d := range SystemDirs {
		r.AddSkipDir(d)
	}

	assert.True(t, r.SkipDir("$RECYCLE.BIN"))
	assert.True(t, r.SkipDir("$recycle.bin"))
	assert.True(t, r.SkipDir("node_modules"))
	assert.False(t, r.SkipDir("Photos"))
}

func TestRulesEmpty(t *testing.T) {
	r := New()
	assert.True(t, r.Empty())
	r.AddExt("tmp")
	assert.False(t, r.Empty())
}
