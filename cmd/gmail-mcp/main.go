package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/gmail"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// GMAIL_CREDENTIALS_PATH, GMAIL_TOKEN_PATH and GMAIL_SENDER may live in
	// a .env file next to the binary.
	_ = godotenv.Load()

	logger := runlog.NewServerLogger()
	sender := gmail.NewSender(logger)

	srv := mcp.NewServer("gmail-mcp", "1.0.0")
	if err := gmail.RegisterTools(srv, sender); err != nil {
		log.Fatalf("gmail-mcp: register tools: %v", err)
	}

	logger.Infof("Starting Gmail MCP server (mode=stdio)")
	if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("gmail-mcp: %v", err)
	}
}
