// Command benchmark drives the matching engine directly (bypassing the
// gateway) with many concurrent producers to measure order and trade
// throughput, in the teacher's own load-generation style.
package main

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clobengine/domain"
	"clobengine/matching"
)

func main() {
	fmt.Println("=== matching engine throughput benchmark ===")

	logger := zap.NewNop()
	engine := matching.NewEngine(1<<16, 1<<16, logger)
	go engine.Run()
	defer engine.Stop()

	testDuration := 5 * time.Second
	numCPU := runtime.NumCPU()
	numWorkers := numCPU - 2
	if numWorkers < 1 {
		numWorkers = 1
	}

	var (
		orderCount atomic.Int64
		tradeCount atomic.Int64
	)

	go func() {
		consumer := engine.Broadcast().NewConsumer()
		for {
			evt, ok := consumer.TryConsume()
			if !ok {
				runtime.Gosched()
				continue
			}
			if evt.Kind == domain.EventTrade {
				tradeCount.Add(1)
			}
		}
	}()

	fmt.Printf("CPUs: %d\n", numCPU)
	fmt.Printf("producers: %d\n", numWorkers)
	fmt.Printf("duration: %v\n\n", testDuration)

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
				price := uint64(50000 + orderID%200)
				order := domain.Order{
					ID:            engine.NextOrderID(),
					ClientID:      uint64(workerID),
					ClientOrderID: uint64(orderID),
					Side:          side,
					Price:         price,
					OrigQty:       1,
					Remaining:     1,
					Timestamp:     time.Now().UnixMilli(),
					TIF:           domain.GTC,
				}
				commands.Publish(domain.NewOrderCommand(order, sink))
				orderCount.Add(1)
				orderID++

				// Drain acks so the sink does not fill up; a full sink drops events.
				select {
				case <-sink:
				default:
				}
			}
		}(w)
	}

	time.Sleep(testDuration)
	close(stopChan)
	time.Sleep(200 * time.Millisecond)

	elapsed := time.Since(startTime)
	totalOrders := orderCount.Load()
	totalTrades := tradeCount.Load()

	fmt.Println("\n=== results ===")
	fmt.Printf("orders:        %d\n", totalOrders)
	fmt.Printf("trades:        %d\n", totalTrades)
	fmt.Printf("order rate:    %.0f orders/sec\n", float64(totalOrders)/elapsed.Seconds())
	fmt.Printf("trade rate:    %.0f trades/sec\n", float64(totalTrades)/elapsed.Seconds())
}
