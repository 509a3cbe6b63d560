package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/transcript"
)

// One-shot sender: build the agent log email payload and deliver it through
// the Gmail MCP server, no model in the loop.
func main() {
	var (
		to      = flag.String("to", transcript.DefaultTo, "Recipient address")
		subject = flag.String("subject", transcript.DefaultSubject, "Email subject")
		logPath = flag.String("log", "logs/agent.log", "Agent log file to send")
		server  = flag.String("server", "gmail-mcp", "Gmail MCP server command")
	)
	flag.Parse()

	if err := run(context.Background(), *to, *subject, *logPath, *server); err != nil {
		log.Fatalf("send-log-email: %v", err)
	}
}

func run(ctx context.Context, to, subject, logPath, server string) error {
	_ = godotenv.Load()

	fields := strings.Fields(server)
	if len(fields) == 0 {
		return fmt.Errorf("invalid -server value: %q", server)
	}

	client, err := mcp.NewStdioClient(ctx, mcp.StdioConfig{Command: fields[0], Args: fields[1:]})
	if err != nil {
		return fmt.Errorf("start MCP server: %w", err)
	}
	defer func() {
		if err := client.Shutdown(context.Background()); err != nil {
			log.Printf("mcp shutdown warning: %v", err)
		}
		if err := client.Close(); err != nil {
			log.Printf("mcp close warning: %v", err)
		}
	}()

	payload := transcript.LogEmailPayload(to, subject, logPath)
	result, err := client.CallTool(ctx, "send_email", payload)
	if err != nil && len(result.Content) == 0 {
		return fmt.Errorf("call send_email: %w", err)
	}

	fmt.Println(result.Text())
	return nil
}
