// Command profile runs the same load as cmd/benchmark under pprof's CPU
// profiler, for hot-path analysis of the matching loop.
package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clobengine/domain"
	"clobengine/matching"
)

func main() {
	cpuFile, err := os.Create("cpu.prof")
	if err != nil {
		panic(err)
	}
	defer cpuFile.Close()

	pprof.StartCPUProfile(cpuFile)
	defer pprof.StopCPUProfile()

	fmt.Println("=== CPU profile: cpu.prof ===")

	logger := zap.NewNop()
	engine := matching.NewEngine(1<<16, 1<<16, logger)
	go engine.Run()
	defer engine.Stop()

	duration := 10 * time.Second
	numCPU := runtime.NumCPU()
	numWorkers := numCPU - 2
	if numWorkers < 1 {
		numWorkers = 1
	}

	var orderCount atomic.Int64

	go func() {
		consumer := engine.Broadcast().NewConsumer()
		for {
			if _, ok := consumer.TryConsume(); !ok {
				runtime.Gosched()
			}
		}
	}()

	startTime := time.Now()
	stopChan := make(chan struct{})
	commands := engine.Commands()

	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			var orderID int
			sink := make(domain.ChanSink, 64)
			for {
				select {
				case <-stopChan:
					return
				default:
				}
				var side domain.Side
				if orderID%2 == 0 {
					side = domain.Bid
				} else {
					side = domain.Ask
				}
				order := domain.Order{
					ID:            engine.NextOrderID(),
					ClientID:      uint64(workerID),
					ClientOrderID: uint64(orderID),
					Side:          side,
					Price:         uint64(50000 + orderID%200),
					OrigQty:       1,
					Remaining:     1,
					Timestamp:     time.Now().UnixMilli(),
					TIF:           domain.GTC,
				}
				commands.Publish(domain.NewOrderCommand(order, sink))
				orderCount.Add(1)
				orderID++

				select {
				case <-sink:
				default:
				}
			}
		}(w)
	}

	time.Sleep(duration)
	close(stopChan)
	time.Sleep(200 * time.Millisecond)

	elapsed := time.Since(startTime)
	fmt.Printf("orders: %d (%.0f/sec)\n", orderCount.Load(), float64(orderCount.Load())/elapsed.Seconds())
	fmt.Println("analyze with: go tool pprof -http=:8080 cpu.prof")
}
