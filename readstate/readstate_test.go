package readstate

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu sync.Mutex
	m  map[string][]byte

	getErr error
}

func newMemKV() *memKV {
	return &memKV{m: make(map[string][]byte)}
}

func (kv *memKV) Get(key string) ([]byte, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.getErr != nil {
		return nil, kv.getErr
	}
	return kv.m[key], nil
}

func (kv *memKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = append([]byte(nil), value...)
	return nil
}

func (kv *memKV) Clear(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}

func TestStore_AddAndHas(t *testing.T) {
	s := NewStore(newMemKV(), "reads", 500)

	assert.False(t, s.Has(1))
	s.Add(1)
	assert.True(t, s.Has(1))
	assert.Equal(t, 1, s.Len())

	// re-adding is a no-op
	s.Add(1)
	assert.Equal(t, 1, s.Len())
}

func TestStore_PersistsOnEveryAdd(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv, "reads", 500)

	s.Add(10)
	s.Add(20)

	buf, err := kv.Get("reads")
	require.NoError(t, err)
	var ids []int64
	require.NoError(t, json.Unmarshal(buf, &ids))
	assert.Equal(t, []int64{10, 20}, ids)
}

func TestStore_ReloadsPersistedState(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv, "reads", 500)
	s.Add(7)
	s.Add(8)

	reloaded := NewStore(kv, "reads", 500)
	assert.True(t, reloaded.Has(7))
	assert.True(t, reloaded.Has(8))
	assert.Equal(t, 2, reloaded.Len())
}

func TestStore_BoundedEviction(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv, "reads", 500)

	for i := int64(1); i <= 501; i++ {
		s.Add(i)
	}

	assert.Equal(t, 500, s.Len(), "inserting 501 distinct ids leaves exactly 500")
	assert.False(t, s.Has(1), "the earliest inserted id is evicted")
	assert.True(t, s.Has(2))
	assert.True(t, s.Has(501))

	// the persisted copy is bounded too
	buf, err := kv.Get("reads")
	require.NoError(t, err)
	var ids []int64
	require.NoError(t, json.Unmarshal(buf, &ids))
	assert.Len(t, ids, 500)
	assert.Equal(t, int64(2), ids[0])
}

func TestStore_CorruptStateResetsToEmpty(t *testing.T) {
	kv := newMemKV()
	require.NoError(t, kv.Set("reads", []byte("{not json")))

	s := NewStore(kv, "reads", 500)
	assert.Equal(t, 0, s.Len())

	// the corrupt blob is cleared so the next run starts clean
	buf, err := kv.Get("reads")
	require.NoError(t, err)
	assert.Empty(t, buf)

	s.Add(3)
	assert.True(t, s.Has(3))
}

func TestStore_UnreadableStateResetsToEmpty(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk gone")

	s := NewStore(kv, "reads", 500)
	assert.Equal(t, 0, s.Len())
}

func TestStore_DropsPersistedDuplicatesAndOverflow(t *testing.T) {
	kv := newMemKV()
	buf, err := json.Marshal([]int64{1, 2, 2, 3})
	require.NoError(t, err)
	require.NoError(t, kv.Set("reads", buf))

	s := NewStore(kv, "reads", 3)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Has(1))
	assert.True(t, s.Has(3))
}
