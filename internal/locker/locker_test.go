package locker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameWallet(t *testing.T) {
	l := New()

	// Two concurrent spenders against a balance that only covers one of them.
	// With the wallet lock held across validate-and-debit, exactly one must
	// succeed.
	balance := int64(100)
	spend := int64(60)
	successes := 0

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("wallet-1")
			defer unlock()
			if balance >= spend {
				time.Sleep(10 * time.Millisecond) // widen the race window
				balance -= spend
				successes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, int64(40), balance)
}

func TestLockDifferentWalletsDoNotBlock(t *testing.T) {
	l := New()

	unlockA := l.Lock("wallet-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("wallet-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different wallet blocked")
	}
}

func TestLockReentryAfterUnlock(t *testing.T) {
	l := New()

	unlock := l.Lock("wallet-1")
	unlock()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("wallet-1")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("released lock could not be reacquired")
	}
}

func TestLockManyGoroutinesCount(t *testing.T) {
	l := New()

	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("shared")
			defer unlock()
			count++
		}()
	}
	wg.Wait()

	require.Equal(t, 100, count)
}
