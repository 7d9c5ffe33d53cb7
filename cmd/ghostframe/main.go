package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GhostFramer/GhostFrame/internal/client"
	"github.com/GhostFramer/GhostFrame/internal/config"
	"github.com/GhostFramer/GhostFrame/internal/models"
)

var rootCmd = &cobra.Command{
	Use:   "ghostframe [command]",
	Short: "ghostframe: stealth manager for Electron apps",
	Long: `ghostframe tracks Electron applications and toggles screen-capture
invisibility and related stealth features by patching their main-process
scripts. Commands talk to the local ghostframe daemon over its loopback
API; start it with "ghostframe daemon run" or install the launchd agent.`,
}

var (
	configPath     string
	timeoutSeconds int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 10, "Timeout in seconds for daemon requests")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// newClient builds an API client from the config file plus the token the
// daemon persisted on its first run.
func newClient() (*client.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	token := cfg.Server.AuthToken
	if token == "" {
		if data, err := os.ReadFile(config.TokenPath()); err == nil {
			token = strings.TrimSpace(string(data))
		}
	}

	base := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	return client.New(base, token), nil
}

func apiContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), time.Duration(timeoutSeconds)*time.Second)
}

func printApp(app *models.TrackedApp) {
	fmt.Fprintf(os.Stdout, "[%s] name=%q state=%s features=%s path=%s\n",
		app.ID, app.Name, app.State, featureList(app.Features), app.Path)
	if app.NeedsRepair {
		fmt.Fprintf(os.Stdout, "    needs repair: %s\n", app.LastError)
	}
}

func featureList(f models.FeatureFlags) string {
	var names []string
	if f.Invisibility {
		names = append(names, models.FeatureInvisibility)
	}
	if f.DockHidden {
		names = append(names, models.FeatureDockHidden)
	}
	if f.Disguised {
		names = append(names, models.FeatureDisguised)
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// parseOnOff converts the positional on/off argument commands like
// protect and feature take.
func parseOnOff(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected \"on\" or \"off\", got %q", arg)
}
