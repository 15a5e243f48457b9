package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate("sse")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	id, err := Generate("sse")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "sse-"))
	assert.Len(t, id, len("sse")+1+21)
}

func TestMustGenerate_Format(t *testing.T) {
	id := MustGenerate("test")
	assert.True(t, strings.HasPrefix(id, "test-"))
}

func TestPushKey_Format(t *testing.T) {
	key, err := PushKey(time.Now())
	require.NoError(t, err)

	assert.Len(t, key, 20)
	for _, char := range key {
		assert.True(t, strings.ContainsRune(pushAlphabet, char), "unexpected character %c", char)
	}
}

func TestPushKey_SortsByTime(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)

	earlier, err := PushKey(base)
	require.NoError(t, err)
	later, err := PushKey(base.Add(time.Millisecond))
	require.NoError(t, err)
	muchLater, err := PushKey(base.Add(48 * time.Hour))
	require.NoError(t, err)

	assert.Less(t, earlier, later)
	assert.Less(t, later, muchLater)
}

func BenchmarkPushKey(b *testing.B) {
	now := time.Now()
	for b.Loop() {
		_, _ = PushKey(now)
	}
}
