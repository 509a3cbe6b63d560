package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/keynote"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := runlog.NewServerLogger()
	service := keynote.NewService(nil, logger)

	srv := mcp.NewServer("keynote-mcp", "1.0.0")
	if err := keynote.RegisterTools(srv, service); err != nil {
		log.Fatalf("keynote-mcp: register tools: %v", err)
	}

	logger.Infof("Starting Keynote MCP server (mode=stdio)")
	if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("keynote-mcp: %v", err)
	}
}
