// Command devbroker runs an embedded MQTT broker so the bridge and a couple
// of simulated devices can be developed without a mosquitto container.
// Accepts every client; never use outside a local setup.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

func main() {
	addr := ":1883"
	if v, ok := os.LookupEnv("BROKER_ADDR"); ok {
		addr = v
	}

	server := mqtt.New(nil)

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		log.Fatalf("Failed to add auth hook: %v", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "t1",
		Address: addr,
	})
	if err := server.AddListener(tcp); err != nil {
		log.Fatalf("Failed to add TCP listener: %v", err)
	}

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("Broker failed: %v", err)
		}
	}()
	log.Printf("Dev broker listening on %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	server.Close()
}
