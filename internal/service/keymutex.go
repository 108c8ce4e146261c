package service

import "sync"

// keyedMutex сериализует операции по ключу (пользователь, товар или
// администратор), закрывая разрыв между проверкой и изменением при
// конкурентных сагах.
type keyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex[K comparable]() *keyedMutex[K] {
	return &keyedMutex[K]{locks: map[K]*keyLock{}}
}

// Lock захватывает блокировку для указанного ключа.
func (k *keyedMutex[K]) Lock(key K) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

// Unlock освобождает блокировку для указанного ключа.
func (k *keyedMutex[K]) Unlock(key K) {
	k.mu.Lock()
	l := k.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
