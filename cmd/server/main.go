// Command server wires together the order book, the matching engine, and
// the gateway's TCP listener into a running exchange process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"clobengine/gateway"
	"clobengine/matching"
)

const (
	defaultAddr       = "0.0.0.0:9000"
	commandRingSize   = 1 << 14 // next power of 2 at or above the spec's 10,000
	broadcastRingSize = 1 << 14
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	addr := defaultAddr
	if v, ok := os.LookupEnv("ADDR"); ok && v != "" {
		addr = v
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := matching.NewEngine(commandRingSize, broadcastRingSize, logger)
	go engine.Run()
	defer engine.Stop()

	go matching.DrainBroadcast(engine.Broadcast(), logger, ctx.Done())

	server := gateway.NewServer(addr, engine.Commands(), engine, logger)
	if err := server.Serve(ctx); err != nil {
		logger.Fatal("gateway server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
