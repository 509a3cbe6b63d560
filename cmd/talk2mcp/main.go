package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/agent"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/mcp"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/models"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/transcript"
)

// scenario bundles the per-task defaults: prompt template, seed query, tool
// server command and any client-supplied tool arguments.
type scenario struct {
	template string
	query    string
	server   string
	presets  func(logPath string) map[string]map[string]any
}

var scenarios = map[string]scenario{
	"keynote": {
		template: agent.KeynotePromptTemplate,
		query:    agent.DefaultKeynoteQuery,
		server:   "keynote-mcp",
	},
	"gmail": {
		template: agent.GmailPromptTemplate,
		query:    agent.DefaultGmailQuery,
		server:   "gmail-mcp",
		presets: func(logPath string) map[string]map[string]any {
			return map[string]map[string]any{
				"send_email": transcript.LogEmailPayload(transcript.DefaultTo, transcript.DefaultSubject, logPath),
			}
		},
	},
}

func main() {
	var (
		query         = flag.String("query", "", "User query to seed the run (scenario default when empty)")
		maxIterations = flag.Int("max-iterations", agent.DefaultMaxIterations, "Maximum agent iterations")
		provider      = flag.String("provider", "gemini", "Model provider: gemini, openai, anthropic or ollama")
		modelName     = flag.String("model", "gemini-2.0-flash", "Model identifier for the selected provider")
		scenarioName  = flag.String("scenario", "keynote", "Agent scenario: keynote or gmail")
		serverCommand = flag.String("server", "", "MCP server command line (scenario default when empty)")
		logPath       = flag.String("log", "logs/agent.log", "Run log path")
	)
	flag.Parse()

	if err := run(context.Background(), *query, *maxIterations, *provider, *modelName, *scenarioName, *serverCommand, *logPath); err != nil {
		log.Fatalf("talk2mcp: %v", err)
	}
}

func run(ctx context.Context, query string, maxIterations int, provider, modelName, scenarioName, serverCommand, logPath string) error {
	// Provider API keys may live in a .env file next to the binary.
	_ = godotenv.Load()

	sc, ok := scenarios[scenarioName]
	if !ok {
		return fmt.Errorf("unknown scenario: %s", scenarioName)
	}
	if query == "" {
		query = sc.query
	}
	if serverCommand == "" {
		serverCommand = sc.server
	}

	logger, err := runlog.Open(logPath, runlog.NewRunID())
	if err != nil {
		return err
	}
	defer logger.Close()

	// The gmail scenario snapshots the log before the run so the email body
	// reflects the transcript the user asked to send, not this run's lines.
	var presets map[string]map[string]any
	if sc.presets != nil {
		presets = sc.presets(logPath)
	}

	model, err := models.NewLLMProvider(ctx, provider, modelName)
	if err != nil {
		return err
	}

	parts, err := splitCommandLine(serverCommand)
	if err != nil {
		return fmt.Errorf("parse server command: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("server command cannot be empty")
	}

	client, err := mcp.NewStdioClient(ctx, mcp.StdioConfig{Command: parts[0], Args: parts[1:]})
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

	loop, err := agent.New(agent.Options{
		Model:           model,
		Session:         client,
		Log:             logger.Logf,
		MaxIterations:   maxIterations,
		PromptTemplate:  sc.template,
		PresetArguments: presets,
	})
	if err != nil {
		return err
	}

	result, err := loop.Run(ctx, query)
	if err != nil {
		return err
	}

	if result.State == agent.StateExhausted {
		fmt.Printf("Run %s stopped after %d iterations without FINAL_ANSWER.\n", logger.RunID(), result.Iterations)
	} else {
		fmt.Printf("Run %s finished in %d iterations.\n", logger.RunID(), result.Iterations)
	}
	return nil
}
