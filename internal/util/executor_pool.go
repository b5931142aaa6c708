package util

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPoolClosed is returned by Submit after Close
	ErrPoolClosed = errors.New("executor pool is closed")
	// ErrPoolFull is returned by TrySubmit when the buffer has no room
	ErrPoolFull = errors.New("executor pool is full")
)

// ExecutorPool runs workerFunc on submitted items with bounded concurrency.
// Items wait in a buffer of bufferSize; Submit blocks when it is full.
type ExecutorPool[T any] struct {
	maxConcurrent int
	workerFunc    func(T)
	panicHandler  func(T, error)
	buffer        chan T
	workerSem     chan struct{}
	wg            sync.WaitGroup
	closed        bool
	closeMutex    sync.Mutex
	done          chan struct{}
}

func NewExecutorPool[T any](maxConcurrent int, bufferSize int, workerFunc func(T)) *ExecutorPool[T] {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	pool := &ExecutorPool[T]{
		maxConcurrent: maxConcurrent,
		workerFunc:    workerFunc,
		buffer:        make(chan T, bufferSize),
		workerSem:     make(chan struct{}, maxConcurrent),
		done:          make(chan struct{}),
	}

	pool.start()
	return pool
}

// OnPanic registers a handler for panics raised by workerFunc. Without one a
// panicking item is dropped and the pool keeps running.
// Must be called before the first Submit.
func (p *ExecutorPool[T]) OnPanic(handler func(T, error)) {
	p.panicHandler = handler
}

func (p *ExecutorPool[T]) start() {
	go func() {
		defer close(p.done)
		for item := range p.buffer {
			p.workerSem <- struct{}{}
			p.wg.Add(1)

			go func(data T) {
				defer func() {
					if r := recover(); r != nil && p.panicHandler != nil {
						p.panicHandler(data, fmt.Errorf("worker panic: %v", r))
					}
					<-p.workerSem
					p.wg.Done()
				}()
				p.workerFunc(data)
			}(item)
		}
		p.wg.Wait()
	}()
}

// Submit queues an item, blocking while the buffer is full
func (p *ExecutorPool[T]) Submit(item T) error {
	p.closeMutex.Lock()
	defer p.closeMutex.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.buffer <- item
	return nil
}

// TrySubmit queues an item without waiting for buffer space
func (p *ExecutorPool[T]) TrySubmit(item T) error {
	p.closeMutex.Lock()
	defer p.closeMutex.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.buffer <- item:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close stops accepting items and waits for queued and running items to finish
func (p *ExecutorPool[T]) Close() {
	p.closeMutex.Lock()
	if p.closed {
		p.closeMutex.Unlock()
		return
	}

	p.closed = true
	close(p.buffer)
	p.closeMutex.Unlock()

	<-p.done
}
