package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"golang.org/x/term"

	"github.com/maago/notify-bridge/config"
	"github.com/maago/notify-bridge/relay"
	"github.com/maago/notify-bridge/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var (
		url         = flag.String("url", cfg.NATSURL, "NATS server URL")
		prefix      = flag.String("prefix", cfg.SubjectPrefix, "Subject prefix to tail")
		device      = flag.String("device", "*", "Device to tail (NATS wildcard allowed)")
		subject     = flag.String("subject", "", "Full subject override (ignores -prefix/-device)")
		dbURL       = flag.String("db", cfg.DatabaseURL, "Postgres URL for history mode")
		last        = flag.Int("last", 0, "Print the last N persisted records for -device and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *last > 0 {
		if err := runHistory(*dbURL, *device, *last); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *url == "" {
		*url = nats.DefaultURL
	}
	subj := *subject
	if subj == "" {
		subj = *prefix + "." + *device + ".>"
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*url, subj); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTail(*url, subj); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTail prints every event on subj until interrupted.
func runTail(url, subj string) error {
	nc, err := relay.Connect(url, "notifytail")
	if err != nil {
		return err
	}
	defer nc.Close()

	sub, err := nc.Subscribe(subj, func(msg *nats.Msg) {
		fmt.Printf("%s  %s\n", msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subj, err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("Tailing %s on %s\n", subj, url)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

// runHistory prints the last n persisted records for device.
func runHistory(dbURL, device string, n int) error {
	if dbURL == "" {
		return fmt.Errorf("history mode needs -db or NOTIFY_DATABASE_URL")
	}
	if device == "" || device == "*" {
		return fmt.Errorf("history mode needs a concrete -device")
	}

	ctx := context.Background()
	s, err := store.Open(ctx, dbURL)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.Last(ctx, device, n)
	if err != nil {
		return err
	}

	fmt.Printf("Device: %s\nRecords: %d\n\n", device, len(recs))
	for _, r := range recs {
		fmt.Printf("%8d  %s  %-20s  %s\n",
			r.Seq, r.Emitted.Format("2006-01-02 15:04:05.000"), r.Leaf, r.Summary)
	}
	return nil
}
