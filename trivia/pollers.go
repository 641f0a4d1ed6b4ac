package main

import (
	"log"
	"sync"
	"time"
)

const defaultPollInterval = time.Second

// Poller runs one background refresh loop against the shared session. Each
// iteration performs a full request/response exchange (queueing on the
// session mutex behind any foreground call), then sleeps the interval.
// Cancellation is cooperative: the stop channel is checked every iteration,
// so a poller is gone within one interval of Stop.
type Poller struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// startPoller runs fn every interval until fn returns false or Stop is
// called. fn returning false lets a loop retire itself, e.g. when a room
// state poll reports the room closed.
func startPoller(name string, interval time.Duration, fn func() bool) *Poller {
	p := &Poller{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		log.Printf("Starting Goroutine: %s poller", name)
		defer close(p.done)
		defer log.Printf("Ending Goroutine: %s poller", name)
		for {
			select {
			case <-p.stop:
				return
			default:
			}
			if !fn() {
				return
			}
			select {
			case <-p.stop:
				return
			case <-time.After(interval):
			}
		}
	}()
	return p
}

// Stop requests cancellation. It does not wait for the loop to unwind; use
// Wait for that. Safe to call repeatedly and from within fn.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
}

// Wait blocks until the loop has exited.
func (p *Poller) Wait() {
	<-p.done
}
