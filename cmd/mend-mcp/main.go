package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/eriksjaastad/mend-go/internal/config"
	"github.com/eriksjaastad/mend-go/internal/logger"
	"github.com/eriksjaastad/mend-go/internal/mcptools"
	"github.com/eriksjaastad/mend-go/internal/sandbox"
)

func main() {
	// 1. Config
	_ = godotenv.Load()

	cfgPath := os.Getenv("MEND_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("Failed to load config", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	cfg.Resolve()

	sandboxRoot := os.Getenv("SANDBOX_ROOT")
	if sandboxRoot == "" {
		// For development, use current dir if not set, but production should require it
		sandboxRoot = "."
		logger.Warn("SANDBOX_ROOT not set, defaulting to current directory")
	}

	logger.Info("Starting mend-mcp server", "sandbox_root", sandboxRoot, "provider", cfg.Oracle.Provider)

	// 2. Initialize Components
	sb, err := sandbox.New(sandboxRoot)
	if err != nil {
		logger.Error("Failed to initialize sandbox", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"mend-mcp",
		"1.0.0",
		server.WithLogging(),
	)

	// 3. Register Tools
	mcptools.RegisterPatchTools(s, sb)
	mcptools.RegisterScriptTools(s, sb, cfg)

	// 4. Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down")
		os.Exit(0)
	}()

	// 5. Serve
	if err := server.ServeStdio(s); err != nil {
		logger.Error("Server error", err)
		os.Exit(1)
	}
}
