package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.platform.alem.school/amibragim/order-fulfillment/cmd/inventoryservice"
	"git.platform.alem.school/amibragim/order-fulfillment/cmd/orderservice"
	"git.platform.alem.school/amibragim/order-fulfillment/internal/cli"
)

func main() {
	// check for help flag first
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse all command-line arguments
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// ensure that mode is not empty
	if mode == "" {
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// create context cancelled on SIGINT/SIGTERM signals ensuring graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the service specified by the mode flag
	switch mode {
	case cli.ModeOrder:
		fs := flag.NewFlagSet(cli.ModeOrder, flag.ContinueOnError)
		port := fs.Int("port", 3000, "HTTP port for the API")
		maxConc := fs.Int("max-concurrent", 50, "Maximum number of concurrent order requests")
		prefetch := fs.Int("prefetch", 10, "RabbitMQ prefetch count for the reply consumer")
		cli.AttachUsage(fs, cli.ModeOrder)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}

		if *port <= 0 || *port > 65535 {
			fmt.Fprintln(os.Stderr, "Error: --port must be between 1 and 65535")
			fs.Usage()
			os.Exit(2)
		}
		if *maxConc <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be > 0")
			fs.Usage()
			os.Exit(2)
		}
		if *prefetch <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be > 0")
			fs.Usage()
			os.Exit(2)
		}

		if err := orderservice.Run(ctx, *port, *maxConc, *prefetch); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeInventory:
		fs := flag.NewFlagSet(cli.ModeInventory, flag.ContinueOnError)
		port := fs.Int("port", 3001, "HTTP port for the API")
		prefetch := fs.Int("prefetch", 10, "RabbitMQ prefetch count for the order-created consumer")
		cli.AttachUsage(fs, cli.ModeInventory)

		if err := fs.Parse(svcArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}

		if *port <= 0 || *port > 65535 {
			fmt.Fprintln(os.Stderr, "Error: --port must be between 1 and 65535")
			fs.Usage()
			os.Exit(2)
		}
		if *prefetch <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be > 0")
			fs.Usage()
			os.Exit(2)
		}

		if err := inventoryservice.Run(ctx, *port, *prefetch); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}

	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
