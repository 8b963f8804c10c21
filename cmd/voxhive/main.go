// ABOUTME: Entry point for the voxhive voice-agent control plane
// ABOUTME: Serves the processor API and supervises per-node agent workers

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/voxhive/voxhive/internal/agent"
	"github.com/voxhive/voxhive/internal/config"
	"github.com/voxhive/voxhive/internal/provider"
	"github.com/voxhive/voxhive/internal/registry"
	"github.com/voxhive/voxhive/internal/server"
	"github.com/voxhive/voxhive/internal/supervisor"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                      _     _
 __   _____  __  ____| |__ (_)_   _____
 \ \ / / _ \ \ \/ / '_ \ _ \| \ \ / / _ \
  \ V / (_) | >  <| | | | | | |\ V /  __/
   \_/ \___/ /_/\_\_| |_| |_|_| \_/ \___|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: voxhive <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the control plane")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check control plane health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	// Credentials commonly live in a .env next to the binary; a missing
	// file is fine.
	_ = godotenv.Load()

	configPath := config.Path()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	fmt.Println()

	logger.Info("starting voxhive",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	catalog, err := provider.LoadCatalog(cfg.Providers.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading provider catalog: %w", err)
	}
	providers := provider.NewRegistry(catalog, logger)

	sup := supervisor.New(logger, cfg.Agents.StopGrace, cfg.Agents.RestartPause)
	entry := func(ctx context.Context, nodeID string, lookup func() (config.NodeConfig, bool)) {
		agent.Run(ctx, agent.Options{
			NodeID:    nodeID,
			Lookup:    lookup,
			Providers: providers,
			Logger:    logger,
			Backoff:   cfg.Agents.ConfigBackoff,
			TokenTTL:  cfg.Token.TTL,
			Keepalive: cfg.Agents.Keepalive,
		})
	}
	reg := registry.New(registry.NewStore(), sup, entry, cfg.Agents.StopGrace, logger)

	activateEnvNode(reg, logger)

	return server.New(cfg, reg, logger).Run(ctx)
}

// activateEnvNode starts the default node when the environment carries a
// complete media credential set. An incomplete set is normal: nodes are
// then configured over the API instead.
func activateEnvNode(reg *registry.Registry, logger *slog.Logger) {
	nodeID, nodeCfg := config.NodeFromEnv()
	if !nodeCfg.Media.Valid() {
		logger.Info("no complete media credentials in environment, waiting for API activation",
			"node_id", nodeID)
		return
	}

	if err := reg.Activate(nodeID, nodeCfg); err != nil {
		logger.Warn("activating environment node failed", "node_id", nodeID, "error", err)
		return
	}
	logger.Info("activated node from environment", "node_id", nodeID)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + h.qualify(a.Key) + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

// qualify prefixes a key with the open group path, dot-separated.
func (h *colorHandler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, a := range attrs {
		a.Key = h.qualify(a.Key)
		newAttrs = append(newAttrs, a)
	}
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/processor/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var env struct {
		Data struct {
			TotalNodes    int `json:"totalNodes"`
			ActiveWorkers int `json:"activeWorkers"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	fmt.Printf("healthy: %d node(s), %d active worker(s)\n",
		env.Data.TotalNodes, env.Data.ActiveWorkers)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("voxhive configuration setup")
	fmt.Println("===========================")
	fmt.Println()

	defaultConfigPath := config.Path()
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- Tailscale Configuration ---")
	enableTailscale := prompt(reader, "Enable Tailscale?", "no")
	tailscaleEnabled := strings.ToLower(enableTailscale) == "yes" || strings.ToLower(enableTailscale) == "y"

	var tsHostname, tsAuthKey string
	var tsEphemeral bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "voxhive")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty for TS_AUTHKEY)", "")
		ephemeralStr := prompt(reader, "Ephemeral node?", "no")
		tsEphemeral = strings.ToLower(ephemeralStr) == "yes" || strings.ToLower(ephemeralStr) == "y"
	}

	fmt.Println("\n--- Agent Configuration ---")
	stopGrace := prompt(reader, "Worker stop grace", config.DefaultStopGrace.String())
	configBackoff := prompt(reader, "Config wait backoff", config.DefaultConfigBackoff.String())

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# voxhive configuration\n")
	cfg.WriteString("# Generated by voxhive init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: \"%s\"\n", tsHostname))
		if tsAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: \"%s\"\n", tsAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
	}
	cfg.WriteString("\n")

	cfg.WriteString("agents:\n")
	cfg.WriteString(fmt.Sprintf("  stop_grace: \"%s\"\n", stopGrace))
	cfg.WriteString(fmt.Sprintf("  restart_pause: \"%s\"\n", config.DefaultRestartPause))
	cfg.WriteString(fmt.Sprintf("  config_backoff: \"%s\"\n", configBackoff))
	cfg.WriteString(fmt.Sprintf("  keepalive: \"%s\"\n", config.DefaultKeepalive))
	cfg.WriteString("\n")

	cfg.WriteString("token:\n")
	cfg.WriteString(fmt.Sprintf("  ttl: \"%s\"\n", config.DefaultTokenTTL))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the control plane:")
	fmt.Printf("  voxhive serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
