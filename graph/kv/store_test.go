package kv

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eachStore runs fn against every backend
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("Badger", func(t *testing.T) {
		s, err := NewBadgerStore(BadgerOptions{InMemory: true})
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
	t.Run("Mem", func(t *testing.T) {
		s := NewMemStore()
		defer s.Close()
		fn(t, s)
	})
}

func TestStoreContract(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		t.Run("GetSetRemove", func(t *testing.T) {
			err := Update(s, func(txn Txn) error {
				return txn.Set([]byte("a"), []byte("1"))
			})
			require.NoError(t, err)

			err = View(s, func(txn Txn) error {
				v, err := txn.Get([]byte("a"))
				require.NoError(t, err)
				assert.Equal(t, []byte("1"), v)

				ok, err := txn.Has([]byte("a"))
				require.NoError(t, err)
				assert.True(t, ok)

				_, err = txn.Get([]byte("missing"))
				assert.ErrorIs(t, err, ErrNotFound)
				return nil
			})
			require.NoError(t, err)

			err = Update(s, func(txn Txn) error {
				return txn.Remove([]byte("a"))
			})
			require.NoError(t, err)

			err = View(s, func(txn Txn) error {
				ok, err := txn.Has([]byte("a"))
				require.NoError(t, err)
				assert.False(t, ok)
				return nil
			})
			require.NoError(t, err)
		})

		t.Run("Rollback", func(t *testing.T) {
			txn, err := s.Begin(true)
			require.NoError(t, err)
			require.NoError(t, txn.Set([]byte("rb"), []byte("x")))
			require.NoError(t, txn.Rollback())

			err = View(s, func(txn Txn) error {
				ok, err := txn.Has([]byte("rb"))
				require.NoError(t, err)
				assert.False(t, ok)
				return nil
			})
			require.NoError(t, err)
		})

		t.Run("ReadOnly", func(t *testing.T) {
			txn, err := s.Begin(false)
			require.NoError(t, err)
			defer txn.Rollback()
			assert.ErrorIs(t, txn.Set([]byte("k"), []byte("v")), ErrReadOnly)
		})

		t.Run("PrefixOps", func(t *testing.T) {
			err := Update(s, func(txn Txn) error {
				for _, k := range []string{"p/1", "p/2", "p/3", "q/1"} {
					if err := txn.Set([]byte(k), []byte(k)); err != nil {
						return err
					}
				}
				return nil
			})
			require.NoError(t, err)

			var keys []string
			err = View(s, func(txn Txn) error {
				return txn.Iterate([]byte("p/"), func(key, value []byte) error {
					keys = append(keys, string(key))
					return nil
				})
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"p/1", "p/2", "p/3"}, keys)

			err = Update(s, func(txn Txn) error {
				return txn.RemovePrefix([]byte("p/"))
			})
			require.NoError(t, err)

			err = View(s, func(txn Txn) error {
				n := 0
				txn.Iterate([]byte("p/"), func(key, value []byte) error {
					n++
					return nil
				})
				assert.Equal(t, 0, n)
				ok, _ := txn.Has([]byte("q/1"))
				assert.True(t, ok)
				return nil
			})
			require.NoError(t, err)
		})
	})
}

func TestCounters(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		key := []byte("ctr")
		err := Update(s, func(txn Txn) error {
			_, err := NewID(txn, key)
			assert.ErrorIs(t, err, ErrMissingKey)
			assert.ErrorIs(t, Decr(txn, key), ErrMissingKey)

			require.NoError(t, InitCounter(txn, key, 0))
			id, err := NewID(txn, key)
			require.NoError(t, err)
			assert.Equal(t, uint64(0), id)

			first, err := Reserve(txn, key, 5)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), first)

			v, err := GetCounter(txn, key)
			require.NoError(t, err)
			assert.Equal(t, uint64(6), v)

			require.NoError(t, Decr(txn, key))
			v, _ = GetCounter(txn, key)
			assert.Equal(t, uint64(5), v)

			_, err = IncrBy(txn, key, -10)
			assert.ErrorIs(t, err, ErrCounterUnderflow)

			// Counters never wrap at the top of the range
			require.NoError(t, InitCounter(txn, key, math.MaxUint64-2))
			_, err = Reserve(txn, key, 3)
			assert.ErrorIs(t, err, ErrCounterOverflow)
			v, _ = GetCounter(txn, key)
			assert.Equal(t, uint64(math.MaxUint64-2), v)
			first, err = Reserve(txn, key, 2)
			require.NoError(t, err)
			assert.Equal(t, uint64(math.MaxUint64-2), first)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestLists(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		key := []byte("list")
		err := Update(s, func(txn Txn) error {
			require.NoError(t, InitList(txn, key))
			n, err := ListCount(txn, key)
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			for _, id := range []uint64{3, 7, 3, 9} {
				require.NoError(t, ListAppend(txn, key, id))
			}
			ids, err := GetList(txn, key)
			require.NoError(t, err)
			assert.Equal(t, []uint64{3, 7, 3, 9}, ids)

			removed, err := ListRemoveOne(txn, key, 3)
			require.NoError(t, err)
			assert.True(t, removed)
			ids, _ = GetList(txn, key)
			assert.Equal(t, []uint64{7, 3, 9}, ids)

			removed, err = ListRemoveOne(txn, key, 42)
			require.NoError(t, err)
			assert.False(t, removed)

			ok, err := ListContains(txn, key, 3)
			require.NoError(t, err)
			assert.True(t, ok)

			lists, err := BulkGetLists(txn, [][]byte{key, []byte("nope")})
			require.NoError(t, err)
			assert.Equal(t, []uint64{7, 3, 9}, lists[0])
			assert.Nil(t, lists[1])
			return nil
		})
		require.NoError(t, err)
	})
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir, err := os.MkdirTemp("", "kv-badger-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	s, err := NewBadgerStore(BadgerOptions{Path: dir})
	require.NoError(t, err)
	require.NoError(t, Update(s, func(txn Txn) error {
		return InitCounter(txn, []byte("c"), 41)
	}))
	require.NoError(t, s.Close())

	// Reopen and confirm persistence
	s, err = NewBadgerStore(BadgerOptions{Path: dir})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, View(s, func(txn Txn) error {
		v, err := GetCounter(txn, []byte("c"))
		require.NoError(t, err)
		assert.Equal(t, uint64(41), v)
		return nil
	}))
	require.NoError(t, s.RunGC(0.5))
}

func TestMemStoreCommitVisibility(t *testing.T) {
	s := NewMemStore()
	txn, err := s.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Set([]byte("a"), []byte("1")))
	require.NoError(t, txn.Set([]byte("b"), []byte("2")))
	assert.Equal(t, 0, s.Len(), "uncommitted writes are private")
	require.NoError(t, txn.Commit())
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, s.Len())
	_, err = s.Begin(false)
	assert.Error(t, err)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x03}, PrefixEnd([]byte{0x01, 0x02}))
	assert.Equal(t, []byte{0x02}, PrefixEnd([]byte{0x01, 0xFF}))
	assert.Nil(t, PrefixEnd([]byte{0xFF, 0xFF}))
}
