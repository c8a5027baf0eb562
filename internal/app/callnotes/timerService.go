package callnotes

import (
	"context"
	"sync/atomic"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
)

//CycleRunner runs one processing cycle
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleResult, error)
}

type timerServiceData struct {
	runEvery     time.Duration
	processor    CycleRunner
	qChan        chan struct{}
	workWaitChan chan struct{}
	running      int32
}

func newTimerServiceData(runEvery time.Duration, processor CycleRunner) *timerServiceData {
	return &timerServiceData{runEvery: runEvery, processor: processor,
		qChan: make(chan struct{}), workWaitChan: make(chan struct{})}
}

func startTimer(data *timerServiceData) error {
	cmdapp.Log.Infof("Starting timer service, wait %v after each cycle", data.runEvery)
	atomic.StoreInt32(&data.running, 1)
	go serviceLoop(data)
	return nil
}

//Running reports whether the loop is alive
func (data *timerServiceData) Running() bool {
	return atomic.LoadInt32(&data.running) == 1
}

func serviceLoop(data *timerServiceData) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-data.qChan:
			cancel()
		case <-ctx.Done():
		}
	}()
mainloop:
	for {
		// run on startup and after each wait
		doCycle(ctx, data)
		timer := time.NewTimer(data.runEvery)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			break mainloop
		}
	}
	atomic.StoreInt32(&data.running, 0)
	cmdapp.Log.Infof("Stopped timer service")
	close(data.workWaitChan)
}

func doCycle(ctx context.Context, data *timerServiceData) {
	cmdapp.Log.Info("Running cycle")
	res, err := data.processor.RunCycle(ctx)
	if err != nil {
		cmdapp.Log.Error(err)
	}
	if res != nil {
		cmdapp.Log.Infof("Cycle done: files %d, delivered %d, skipped %d, failed %d",
			res.Files, res.Delivered, res.Skipped, res.Failed)
	}
}
