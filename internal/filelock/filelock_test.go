package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "runs", ".run.lock")

	lock1 := NewFileLock(lockPath)
	lock2 := NewFileLock(lockPath)

	acquired, err := lock1.TryLock()
	require.NoError(t, err)
	require.True(t, acquired, "first TryLock should succeed")

	acquired, err = lock2.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired, "second TryLock should fail while the lock is held")

	require.NoError(t, lock1.Unlock())

	acquired, err = lock2.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired, "TryLock should succeed after unlock")
	require.NoError(t, lock2.Unlock())
}

func TestTryAcquire(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), ".run.lock")

	held, err := TryAcquire(lockPath)
	require.NoError(t, err)
	assert.Equal(t, lockPath, held.Path())

	_, err = TryAcquire(lockPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, held.Unlock())

	again, err := TryAcquire(lockPath)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestConcurrentLocking(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")
	counterPath := filepath.Join(tmpDir, "counter.txt")
	require.NoError(t, os.WriteFile(counterPath, []byte("0"), 0644))

	const goroutines = 5
	const iterations = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				lock := NewFileLock(lockPath)
				if err := lock.Lock(); err != nil {
					t.Errorf("failed to acquire lock: %v", err)
					return
				}
				data, _ := os.ReadFile(counterPath)
				var counter int
				fmt.Sscanf(string(data), "%d", &counter)
				os.WriteFile(counterPath, []byte(fmt.Sprintf("%d", counter+1)), 0644)
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(counterPath)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", goroutines*iterations), string(data))
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "nested", "meta.json")

	require.NoError(t, AtomicWrite(target, []byte(`{"a":1}`)))
	require.NoError(t, AtomicWrite(target, []byte(`{"a":2}`)))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestAtomicWriteNoTempFileLeftBehind(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "index.json")

	for i := 0; i < 3; i++ {
		require.NoError(t, AtomicWrite(target, []byte(fmt.Sprintf("v%d", i))))
	}

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.json", entries[0].Name())
}

func TestConcurrentAtomicWrites(t *testing.T) {
	target := filepath.Join(t.TempDir(), "test.txt")

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			if err := AtomicWrite(target, []byte(string(rune('A'+id)))); err != nil {
				t.Errorf("AtomicWrite failed for goroutine %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Len(t, content, 1, "one complete write must win")
}

func TestAppendSync(t *testing.T) {
	target := filepath.Join(t.TempDir(), "runs", "wr-1", "events.jsonl")

	require.NoError(t, AppendSync(target, []byte("one\n")))
	require.NoError(t, AppendSync(target, []byte("two\n")))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, strings.Fields(string(got)))
}
