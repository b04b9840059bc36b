// Command mirror shows the desktop through a transparent, draggable
// triangle window, re-rendered from a live screen capture.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gogpu/mirror"
	"github.com/gogpu/mirror/internal/app"
	"github.com/gogpu/mirror/internal/config"

	_ "github.com/gogpu/mirror/backend/dxgi"
	_ "github.com/gogpu/mirror/backend/native"
	_ "github.com/gogpu/mirror/backend/screen"
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

var (
	version = "0.1.0"
	cfgFile string
)

// glfw needs every call on the main thread.
func init() {
	runtime.LockOSThread()
}

var rootCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Desktop mirror",
	Long: `mirror captures the desktop and redraws it inside a transparent triangle
window. Drag the triangle with the left button, zoom it with the wheel,
press T to toggle always-on-top, X to toggle exclude-from-capture and
Escape to quit.`,
	SilenceUsage: true,
	RunE:         runMirror,
}

var runCmd = &cobra.Command{
	Use:          "run",
	Short:        "Open the mirror window",
	SilenceUsage: true,
	RunE:         runMirror,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mirror v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.File()+")")

	addRunFlags(rootCmd)
	addRunFlags(runCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(versionCmd)
}

// addRunFlags declares the flags that override config keys. Their names
// match the keys with dashes for underscores.
func addRunFlags(cmd *cobra.Command) {
	d := config.Default()
	f := cmd.Flags()
	f.Int("width", d.Width, "window width when not fullscreen")
	f.Int("height", d.Height, "window height when not fullscreen")
	f.Bool("fullscreen", d.Fullscreen, "cover the primary monitor's work area")
	f.Int("fps", d.FPS, "redraws per second")
	f.String("backend", d.Backend, "primary rendering backend (default: first registered)")
	f.String("capture", d.Capture, "capture backend (default: first registered)")
	f.Duration("capture-timeout", d.CaptureTimeout, "how long a frame acquisition may wait")
	f.Bool("validation", d.Validation, "enable graphics API validation")
	f.Bool("gpu-validation", d.GPUValidation, "enable GPU-based validation (implies --validation)")
	f.Float64("side-length", d.SideLength, "initial triangle side in pixels (0 for the largest)")
	f.Bool("exclude-from-capture", d.ExcludeFromCapture, "hide the window from screen capture")
	f.Bool("keep-top-most", d.KeepTopMost, "keep the window above others")
	f.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	f.String("log-format", d.LogFormat, "log format: auto, text, json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, err := range cfg.Validate() {
		fmt.Fprintf(cmd.ErrOrStderr(), "config: %v\n", err)
	}
	return cfg, nil
}

func runMirror(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	mirror.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	runErr := a.Run(ctx)
	stats := a.Stats()
	closeErr := a.Close()

	logger.Info("mirror: stopped",
		"frames", stats.Frames,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"timed_out", stats.TimedOut,
		"capture_recreations", stats.CaptureRecreations,
		"bridge_recreations", stats.BridgeRecreations)

	if runErr != nil {
		return runErr
	}
	return closeErr
}
