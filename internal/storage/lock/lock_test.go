package lock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("db", ".users.lock"), Path("db", "users"))
}

func TestExclusive_Serializes(t *testing.T) {
	dir := t.TempDir()

	release, err := Exclusive(dir, "users")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := Exclusive(dir, "users")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second exclusive lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second exclusive lock not acquired after release")
	}
}

func TestShared_AllowsReaders(t *testing.T) {
	dir := t.TempDir()

	first, err := Shared(dir, "users")
	require.NoError(t, err)
	defer first()

	second, err := Shared(dir, "users")
	require.NoError(t, err)
	second()
}
