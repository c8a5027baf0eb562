package utils

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

//MultiCloseChannel can be closed several times
type MultiCloseChannel struct {
	C    chan os.Signal
	once sync.Once
}

//NewMultiCloseChannel creates new channel
func NewMultiCloseChannel() *MultiCloseChannel {
	return &MultiCloseChannel{C: make(chan os.Signal, 1)}
}

//NewSignalChannel returns new channel that listens for system interrupts
func NewSignalChannel() *MultiCloseChannel {
	fc := NewMultiCloseChannel()
	signal.Notify(fc.C, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	return fc
}

//Close closes channel if not closed
func (mc *MultiCloseChannel) Close() {
	mc.once.Do(func() {
		signal.Stop(mc.C)
		close(mc.C)
	})
}
