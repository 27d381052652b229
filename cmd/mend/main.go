package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eriksjaastad/mend-go/internal/config"
	"github.com/eriksjaastad/mend-go/internal/diffview"
	"github.com/eriksjaastad/mend-go/internal/fixer"
	"github.com/eriksjaastad/mend-go/internal/logger"
	"github.com/eriksjaastad/mend-go/internal/oracle"
	"github.com/eriksjaastad/mend-go/internal/patch"
	"github.com/eriksjaastad/mend-go/internal/runner"
	"github.com/eriksjaastad/mend-go/internal/sandbox"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	// run flags
	provider    string
	model       string
	maxAttempts int
	candidates  int
	confirm     bool
	yes         bool
	timeout     string

	// apply/preview flags
	patchFile string
	noVerify  bool
)

var rootCmd = &cobra.Command{
	Use:   "mend",
	Short: "mend - run a script, ask a model for line edits, patch until it passes",
	Long: `mend runs a target script and, when it fails, asks a language model for
a JSON list of line edits. Every edit list is validated against the
current source, previewed as a diff, syntax checked and applied one
attempt at a time until the script exits zero or the attempt budget
runs out. The first write leaves a .bak sibling so a whole session can
be undone with "mend revert".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if verbose {
			logger.SetLevel("DEBUG")
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <script> [-- args...]",
	Short: "Run a script and patch it until it exits zero",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFix,
}

var applyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Apply a JSON edit list to a file",
	Long: `Reads a JSON array of edit directives from --file (stdin by default),
applies it to the target and writes the result back, keeping a .bak
sibling of the original.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show what a JSON edit list would change, without writing",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

var revertCmd = &cobra.Command{
	Use:   "revert <script>",
	Short: "Restore a file from the .bak left by earlier patches",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevert,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: .mend.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd.Flags().StringVar(&provider, "provider", "", "Oracle provider: ollama, openai or gemini (default: detected from env)")
	runCmd.Flags().StringVar(&model, "model", "", "Model name (default: per provider)")
	runCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Patch attempts before giving up")
	runCmd.Flags().IntVar(&candidates, "candidates", 0, "Candidate patches per failure")
	runCmd.Flags().BoolVar(&confirm, "confirm", false, "Ask before every write")
	runCmd.Flags().BoolVar(&yes, "yes", false, "Never ask, apply every accepted patch")
	runCmd.Flags().StringVar(&timeout, "timeout", "", `Script run timeout, e.g. "60s" (0 disables)`)

	for _, c := range []*cobra.Command{applyCmd, previewCmd} {
		c.Flags().StringVarP(&patchFile, "file", "f", "-", "Patch JSON file (- reads stdin)")
	}
	applyCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip the syntax check before writing")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(revertCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers the CLI flags over the file and environment config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if provider != "" {
		cfg.Oracle.Provider = provider
	}
	if model != "" {
		cfg.Oracle.Model = model
	}
	if maxAttempts > 0 {
		cfg.Fixer.MaxAttempts = maxAttempts
	}
	if candidates > 0 {
		cfg.Fixer.Candidates = candidates
	}
	if cmd.Flags().Changed("confirm") {
		cfg.Fixer.Confirm = confirm
	}
	if timeout != "" {
		cfg.Runner.Timeout = timeout
	}

	logger.SetLevel(cfg.LogLevel)
	if verbose {
		logger.SetLevel("DEBUG")
	}
	cfg.Resolve()
	return cfg, nil
}

// sandboxFor confines writes to the directory holding the target file.
func sandboxFor(path string) (*sandbox.Sandbox, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	sb, err := sandbox.New(filepath.Dir(abs))
	if err != nil {
		return nil, "", err
	}
	return sb, abs, nil
}

func readPatchInput() ([]byte, error) {
	if patchFile == "" || patchFile == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(patchFile)
}

func askConfirm() bool {
	fmt.Print("Apply this change? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runFix(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	script := args[0]
	scriptArgs := args[1:]

	sb, scriptPath, err := sandboxFor(script)
	if err != nil {
		return err
	}
	runTimeout, err := cfg.RunTimeout()
	if err != nil {
		return err
	}
	client, err := oracle.NewClient(cfg.OracleOptions())
	if err != nil {
		return err
	}
	logger.Info("oracle selected", "client", client.Name())

	f := &fixer.Fixer{
		Runner:  runner.New(runTimeout),
		Oracle:  oracle.New(client, cfg.Oracle.MaxRetries),
		Sandbox: sb,
		Options: fixer.Options{
			MaxAttempts: cfg.Fixer.MaxAttempts,
			Candidates:  cfg.Fixer.Candidates,
			Confirm:     cfg.Fixer.Confirm && !yes,
		},
		ConfirmFunc: askConfirm,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	outcome, err := f.Run(ctx, fixer.Input{Script: scriptPath, Args: scriptArgs})
	if err != nil {
		if outcome.LastResult.Output != "" {
			fmt.Fprintln(os.Stderr, outcome.LastResult.Output)
		}
		return err
	}

	if outcome.Attempts == 0 {
		fmt.Printf("%s already runs clean\n", script)
	} else {
		fmt.Printf("mended %s after %d patch attempt(s), backup at %s\n",
			script, outcome.Attempts, scriptPath+sandbox.BackupSuffix)
	}
	if outcome.LastResult.Output != "" {
		fmt.Print(outcome.LastResult.Output)
		if !strings.HasSuffix(outcome.LastResult.Output, "\n") {
			fmt.Println()
		}
	}
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	raw, err := readPatchInput()
	if err != nil {
		return err
	}
	p, err := patch.ParsePatch(raw)
	if err != nil {
		return err
	}

	sb, target, err := sandboxFor(args[0])
	if err != nil {
		return err
	}
	source, err := sb.SafeRead(target)
	if err != nil {
		return err
	}

	engine := &patch.Engine{}
	if !noVerify {
		engine.Verifier = runner.SyntaxVerifier(target)
	}
	patched, err := engine.Apply(string(source), p)
	if err != nil {
		return err
	}
	if patched == string(source) {
		fmt.Println("nothing to change")
		return nil
	}

	hunks := diffview.Compute(string(source), patched)
	fmt.Print(diffview.RenderNote(p.Explanation))
	fmt.Print(diffview.Render(hunks))

	if !sb.HasBackup(target) {
		if _, err := sb.Backup(target); err != nil {
			return err
		}
	}
	if err := sb.SafeWrite(target, []byte(patched)); err != nil {
		return err
	}

	added, removed := diffview.Stats(hunks)
	fmt.Printf("applied %d directive(s) to %s (+%d -%d), backup at %s\n",
		len(p.Directives), args[0], added, removed, target+sandbox.BackupSuffix)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	raw, err := readPatchInput()
	if err != nil {
		return err
	}
	p, err := patch.ParsePatch(raw)
	if err != nil {
		return err
	}

	sb, target, err := sandboxFor(args[0])
	if err != nil {
		return err
	}
	source, err := sb.SafeRead(target)
	if err != nil {
		return err
	}

	engine := &patch.Engine{}
	patched, err := engine.Apply(string(source), p)
	if err != nil {
		return err
	}
	if patched == string(source) {
		fmt.Println("nothing to change")
		return nil
	}

	hunks := diffview.Compute(string(source), patched)
	fmt.Print(diffview.RenderNote(p.Explanation))
	fmt.Print(diffview.Render(hunks))
	added, removed := diffview.Stats(hunks)
	fmt.Printf("+%d -%d\n", added, removed)
	return nil
}

func runRevert(cmd *cobra.Command, args []string) error {
	sb, target, err := sandboxFor(args[0])
	if err != nil {
		return err
	}
	if !sb.HasBackup(target) {
		return fmt.Errorf("no backup for %s", args[0])
	}
	if err := sb.Restore(target); err != nil {
		return err
	}
	fmt.Printf("restored %s from %s\n", args[0], target+sandbox.BackupSuffix)
	return nil
}
