package locker

import "sync"

// WalletLocker hands out one mutex per wallet id so that concurrent sends
// from the same wallet are serialized while sends from different wallets run
// in parallel. Entries are never removed; wallets are never deleted either.
type WalletLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *WalletLocker {
	return &WalletLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the wallet's mutex is held and returns the release func.
// The lock must be held from balance validation through the durable write of
// the terminal state, or two in-flight sends could both pass validation.
func (l *WalletLocker) Lock(walletId string) func() {
	l.mu.Lock()
	m, ok := l.locks[walletId]
	if !ok {
		m = &sync.Mutex{}
		l.locks[walletId] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
