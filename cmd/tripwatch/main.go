// tripwatch follows one trip's live position stream from the terminal.
// Dev tool for poking at a trackerd instance without the mobile app.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-driveshare/internal/tracking"
)

func main() {
	endpoint := flag.String("endpoint", "ws://localhost:8080/stream/ws", "push channel endpoint")
	tripID := flag.String("trip", "", "trip id to follow")
	interval := flag.Duration("interval", 2*time.Second, "snapshot print interval")
	retry := flag.Bool("retry", true, "reconnect when the stream drops")
	flag.Parse()

	if *tripID == "" {
		fmt.Fprintln(os.Stderr, "usage: tripwatch -trip <id> [-endpoint ws://...]")
		os.Exit(2)
	}

	tracker := tracking.NewTracker(*endpoint, nil)
	defer tracker.Close()

	ctx := context.Background()
	if err := tracker.Track(ctx, *tripID, nil); err != nil {
		log.Printf("track failed, will retry: %v", err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-signals:
			return
		case <-ticker.C:
			view := tracker.Snapshot()
			line, _ := json.Marshal(view)
			fmt.Println(string(line))

			if !view.Connected && *retry {
				tracker.Reconnect(ctx)
			}
		}
	}
}
