package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/systrav/internal/events"
	"github.com/dusk-indust/systrav/internal/mcptools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		stdio bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph as MCP tools over streamable HTTP or stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, stdio)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve MCP on stdin/stdout instead of HTTP")
	return cmd
}

func (a *app) serve(ctx context.Context, stdio bool) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sink, err := a.publisher()
	if err != nil {
		return err
	}
	feed := events.NewBroadcaster(64, a.logger)
	pub := events.Multi{sink, feed}
	defer pub.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng, err := a.newEngine(ctx, st, pub, reg)
	if err != nil {
		return err
	}
	svc := mcptools.NewGraphService(eng)

	if stdio {
		return mcptools.RunMCPServerStdio(ctx, svc)
	}
	return mcptools.RunMCPServer(ctx, svc, a.cfg.Server.Addr, mcptools.HandlerOptions{
		Gatherer: reg,
		Events:   feed,
	}, a.logger)
}

func (a *app) publisher() (events.Publisher, error) {
	if !a.cfg.Kafka.Enabled() {
		return events.Nop{}, nil
	}
	pub, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: a.cfg.Kafka.Brokers,
		Topic:   a.cfg.Kafka.Topic,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	a.logger.Info("publishing change events",
		zap.Strings("brokers", a.cfg.Kafka.Brokers),
		zap.String("topic", a.cfg.Kafka.Topic))
	return pub, nil
}
