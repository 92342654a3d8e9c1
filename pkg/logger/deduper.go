package logger

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultFlushDelay = 2 * time.Second

// Deduper collapses consecutive identical messages into one entry carrying a repeats count.
// The pending message is written once a different message arrives or the delay passes quietly.
type Deduper struct {
	log   *zap.Logger
	delay time.Duration

	mu      sync.Mutex
	lastMsg string
	count   int
	timer   *time.Timer
}

func NewDeduper(log *zap.Logger, delay time.Duration) *Deduper {
	if delay <= 0 {
		delay = DefaultFlushDelay
	}
	return &Deduper{log: log, delay: delay}
}

func (d *Deduper) Info(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if msg != d.lastMsg {
		d.flushLocked()
		d.lastMsg = msg
	}
	d.count++

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.Flush)
}

func (d *Deduper) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushLocked()
}

func (d *Deduper) flushLocked() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.log.Info(d.lastMsg)
	} else {
		d.log.Info(d.lastMsg, zap.Int("repeats", d.count))
	}
	d.count = 0
	d.lastMsg = ""
}
