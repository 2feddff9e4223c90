// Package taskqueuecli is the cobra-based CLI surface an embedding binary
// wires up around a fully-constructed queue: queue_info and consumer
// subcommands, plus an optional metrics endpoint. The embedder builds the
// queue — including dialing its store — and registers its handlers before
// calling Execute; this package never discovers task code or touches the
// store connection itself, only the queue object it's handed.
package taskqueuecli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oriys/taskqueue/internal/consumer"
	"github.com/oriys/taskqueue/internal/logging"
	"github.com/oriys/taskqueue/internal/metrics"
	"github.com/oriys/taskqueue/internal/qconfig"
	"github.com/oriys/taskqueue/internal/queue"
	"github.com/spf13/cobra"
)

var configFile string

// Execute builds and runs the root command around q. The embedder has
// already constructed q — including dialing its store adapter — registered
// its handlers, and chosen its ack policy; this function only adds the
// operational surface around it.
func Execute(q *queue.Queue) error {
	root := &cobra.Command{
		Use:   "taskqueue",
		Short: "Operate a Redis-backed task queue",
		Long:  "Inspects and consumes a task queue built and configured by the embedding program.",
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (e.g. reaper check interval)")

	root.AddCommand(queueInfoCmd(q), consumerCmd(q))

	return root.Execute()
}

func loadConfig() (qconfig.Config, error) {
	if configFile == "" {
		return qconfig.Default(), nil
	}
	return qconfig.Load(configFile)
}

func queueInfoCmd(q *queue.Queue) *cobra.Command {
	return &cobra.Command{
		Use:   "queue_info",
		Short: "Print the queue name and registered task identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("[info] %s\n", q.Name())
			for _, ident := range q.RegisteredIdents() {
				fmt.Printf("[+] registered task: %s\n", ident)
			}
			return nil
		},
	}
}

func consumerCmd(q *queue.Queue) *cobra.Command {
	var (
		metricsAddr string
		logLevel    string
		logFormat   string
	)

	cmd := &cobra.Command{
		Use:   "consumer",
		Short: "Run the blocking receive loop for this queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logging.SetLevelFromString(logLevel)
			logging.InitStructured(logFormat, logLevel)

			if metricsAddr != "" {
				metrics.Init("taskqueue")
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", metrics.Handler())
					logging.Op().Info("metrics endpoint started", "addr", metricsAddr)
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logging.Op().Error("metrics endpoint stopped", "error", err)
					}
				}()
			}

			c := consumer.New(q, consumer.WithReaperCheckInterval(cfg.Reaper.CheckInterval))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logging.Op().Info("shutdown signal received")
				c.Stop()
			}()

			ctx := context.Background()
			if err := c.Run(ctx); err != nil {
				return fmt.Errorf("consumer exited: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve /metrics on (empty disables it)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	return cmd
}

// ConnectTimeout bounds how long an embedder's main should wait for the
// initial Redis dial before giving up and exiting.
const ConnectTimeout = 5 * time.Second
