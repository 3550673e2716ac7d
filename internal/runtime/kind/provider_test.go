package kind

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLease_SameValueIsShared(t *testing.T) {
	t.Setenv("TESTBENCH_LEASE_SHARED", "user")
	l := newEnvLease("TESTBENCH_LEASE_SHARED")

	var wg sync.WaitGroup
	held := make(chan struct{}, 2)
	release := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.acquire("net-a"); err != nil {
				t.Error(err)
				return
			}
			held <- struct{}{}
			<-release
			l.release()
		}()
	}

	// Both holders get in without the other releasing.
	for i := 0; i < 2; i++ {
		select {
		case <-held:
		case <-time.After(2 * time.Second):
			t.Fatal("second holder blocked on the same value")
		}
	}
	assert.Equal(t, "net-a", os.Getenv("TESTBENCH_LEASE_SHARED"))

	close(release)
	wg.Wait()
	assert.Equal(t, "user", os.Getenv("TESTBENCH_LEASE_SHARED"))
}

func TestEnvLease_OtherValueWaits(t *testing.T) {
	const key = "TESTBENCH_LEASE_OTHER"
	require.NoError(t, os.Unsetenv(key))
	l := newEnvLease(key)

	require.NoError(t, l.acquire("net-a"))

	acquired := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.acquire("net-b"); err != nil {
			t.Error(err)
			return
		}
		acquired <- os.Getenv(key)
		l.release()
	}()

	select {
	case <-acquired:
		t.Fatal("different value acquired while net-a was held")
	case <-time.After(50 * time.Millisecond):
	}

	l.release()
	select {
	case got := <-acquired:
		assert.Equal(t, "net-b", got)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken after release")
	}

	<-done
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Zero(t, l.holders)
	_, set := os.LookupEnv(key)
	assert.False(t, set)
}
