package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/GhostFramer/GhostFrame/internal/config"
	"github.com/GhostFramer/GhostFrame/internal/daemon"
	"github.com/GhostFramer/GhostFrame/internal/service"
)

func init() {
	rootCmd.AddCommand(cmdDaemon)
	cmdDaemon.AddCommand(cmdDaemonRun)
	cmdDaemon.AddCommand(cmdDaemonInstall)
	cmdDaemon.AddCommand(cmdDaemonUninstall)
	cmdDaemon.AddCommand(cmdDaemonStatus)
	cmdDaemon.AddCommand(cmdDaemonRestart)
}

var cmdDaemon = &cobra.Command{
	Use:   "daemon",
	Short: "Run the daemon or manage its launchd agent",
}

var cmdDaemonRun = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground",
	Long:  `Runs the full engine in this process until interrupted. The installed launchd agent invokes exactly this command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}
		if err := d.Start(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "GhostFrame daemon listening on %s\n", d.Addr())

		// Under launchd there is no terminal; a spinner would just spray
		// control characters into the log file.
		var spin *spinner.Spinner
		if !service.IsRunningAsService() {
			spin = spinner.New(spinner.CharSets[21], 120*time.Millisecond, spinner.WithWriter(os.Stdout))
			spin.Suffix = " Running..."
			spin.Start()
		}

		sigc := make(chan os.Signal, 2)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		if spin != nil {
			spin.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return d.Shutdown(ctx)
	},
}

var cmdDaemonInstall = &cobra.Command{
	Use:   "install",
	Short: "Install the launchd agent so the daemon starts at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcCfg := service.GetDefaultConfig()
		svcCfg.ConfigPath = configPath

		if err := service.Install(svcCfg); err != nil {
			return err
		}

		path, err := service.PlistPath()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Agent installed: %s\n", path)
		fmt.Fprintf(os.Stdout, "Logs: %s\n", svcCfg.LogPath)
		return nil
	},
}

var cmdDaemonUninstall = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the launchd agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Uninstall(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Agent removed")
		return nil
	},
}

var cmdDaemonStatus = &cobra.Command{
	Use:   "status",
	Short: "Show launchd agent status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := service.Status()
		if err != nil {
			return err
		}

		if !status.IsInstalled {
			fmt.Fprintln(os.Stdout, "Agent not installed")
			return nil
		}
		if status.IsRunning {
			fmt.Fprintf(os.Stdout, "Agent running (pid %d)\n", status.PID)
			return nil
		}
		fmt.Fprintf(os.Stdout, "Agent installed, state: %s\n", status.State)
		return nil
	},
}

var cmdDaemonRestart = &cobra.Command{
	Use:   "restart",
	Short: "Restart the launchd agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.Restart(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Agent restarted")
		return nil
	},
}
