package inventory

import "sync"

// productLocker выдает мьютекс на каждый товар.
// Товары не удаляются, поэтому мьютексы живут все время работы сервиса.
type productLocker struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newProductLocker() *productLocker {
	return &productLocker{locks: make(map[int]*sync.Mutex)}
}

func (l *productLocker) lock(productID int) func() {
	l.mu.Lock()
	m, ok := l.locks[productID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[productID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
