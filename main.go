package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/freekieb7/hello/http"
	"github.com/freekieb7/hello/telemetry"
)

const (
	serviceName = "hello"
	address     = "0.0.0.0"
	port        = 8080
	threads     = 4

	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry.ApplyDefaults()
	shutdown, err := telemetry.Setup(ctx, serviceName)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := shutdown(ctx); err != nil {
			log.Printf("Telemetry shutdown: %v", err)
		}
	}()

	addr := net.JoinHostPort(address, strconv.Itoa(port))
	server := http.NewServer(http.DefaultServerName, http.HelloHandler, http.WithThreads(threads))

	if err := server.Listen(addr); err != nil {
		return err
	}

	log.Printf("Listening and serving on: %s", addr)

	// Blocks until interrupted, this goroutine being one of the workers
	return server.Serve(ctx)
}
