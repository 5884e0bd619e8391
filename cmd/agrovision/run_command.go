package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"agrovision/internal/app"
	"agrovision/internal/config"
)

type runFlags struct {
	width         int
	height        int
	fps           float64
	threshold     int
	resetInterval time.Duration
	validIDs      string
	dict          string
	headless      bool
	jpegQuality   int
	dbDriver      string
	dbHost        string
	dbPort        int
	dbName        string
	dbUser        string
	dbSSLMode     string
	sqlitePath    string
	writeTimeout  time.Duration
	httpAddr      string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [DEVICE]",
		Short: "Watch a camera and report confirmed marker sightings",
		Long: "Watch a camera, video file or stream for ArUco ear tags. A marker seen on enough\n" +
			"consecutive processed frames is reported as \"Animal <id> detected\" and, when a store\n" +
			"is configured, saved with a JPEG snapshot. DEVICE defaults to CAPTURE_DEVICE.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Device = args[0]
			}
			applyRunFlags(cmd, &f, cfg)

			log, err := ctx.newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.NewApp(runCtx, cfg, log)
			if err != nil {
				log.Error("Startup failed: %v", err)
				return err
			}
			if err := application.Run(runCtx); err != nil {
				log.Error("Run failed: %v", err)
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.width, "width", 1920, "Requested capture width (CAPTURE_WIDTH)")
	flags.IntVar(&f.height, "height", 1080, "Requested capture height (CAPTURE_HEIGHT)")
	flags.Float64Var(&f.fps, "fps", 30, "Maximum processed frames per second, 0 for no cap (MAX_FPS)")
	flags.IntVar(&f.threshold, "threshold", 10, "Frames a marker must be seen before it is confirmed (CONFIRM_THRESHOLD)")
	flags.DurationVar(&f.resetInterval, "reset-interval", time.Minute, "How often all counters are cleared (RESET_INTERVAL)")
	flags.StringVar(&f.validIDs, "valid-ids", "0-10", "Marker ids that may be confirmed, e.g. 0-10 or 1,2,5-7 or * (VALID_IDS)")
	flags.StringVar(&f.dict, "dict", "4x4_250", "ArUco dictionary (ARUCO_DICT)")
	flags.BoolVar(&f.headless, "headless", false, "Run without a preview window (HEADLESS)")
	flags.IntVar(&f.jpegQuality, "jpeg-quality", 90, "JPEG quality of stored snapshots and preview frames (JPEG_QUALITY)")
	flags.StringVar(&f.dbDriver, "db-driver", "", "Sighting store: sqlite or postgres, inferred when empty (DB_DRIVER)")
	flags.StringVar(&f.dbHost, "db-host", "", "PostgreSQL host (DB_HOST)")
	flags.IntVar(&f.dbPort, "db-port", 5432, "PostgreSQL port (DB_PORT)")
	flags.StringVar(&f.dbName, "db-name", "agrovision", "PostgreSQL database (DB_NAME)")
	flags.StringVar(&f.dbUser, "db-user", "", "PostgreSQL user, password is read from DB_PASSWORD (DB_USER)")
	flags.StringVar(&f.dbSSLMode, "db-sslmode", "disable", "PostgreSQL sslmode (DB_SSLMODE)")
	flags.StringVar(&f.sqlitePath, "sqlite", "", "SQLite database path (SQLITE_PATH)")
	flags.DurationVar(&f.writeTimeout, "write-timeout", 5*time.Second, "Timeout of one sighting write (WRITE_TIMEOUT)")
	flags.StringVar(&f.httpAddr, "http", "", "Listen address of the preview and sightings API, disabled when empty (HTTP_ADDR)")

	return cmd
}

// applyRunFlags overrides cfg with the flags given on the command line.
// Flags left at their defaults keep the environment's values. A flag also
// replaces a malformed value of its environment variable.
func applyRunFlags(cmd *cobra.Command, f *runFlags, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name, env string, apply func()) {
		if flags.Changed(name) {
			apply()
			cfg.ClearEnvError(env)
		}
	}

	set("width", "CAPTURE_WIDTH", func() { cfg.CaptureWidth = f.width })
	set("height", "CAPTURE_HEIGHT", func() { cfg.CaptureHeight = f.height })
	set("fps", "MAX_FPS", func() { cfg.MaxFPS = f.fps })
	set("threshold", "CONFIRM_THRESHOLD", func() { cfg.Threshold = f.threshold })
	set("reset-interval", "RESET_INTERVAL", func() { cfg.ResetInterval = f.resetInterval })
	set("valid-ids", "VALID_IDS", func() { cfg.ValidIDs = f.validIDs })
	set("dict", "ARUCO_DICT", func() { cfg.ArucoDict = f.dict })
	set("headless", "HEADLESS", func() { cfg.Headless = f.headless })
	set("jpeg-quality", "JPEG_QUALITY", func() { cfg.JPEGQuality = f.jpegQuality })
	set("db-driver", "DB_DRIVER", func() { cfg.DBDriver = strings.ToLower(f.dbDriver) })
	set("db-host", "DB_HOST", func() { cfg.DBHost = f.dbHost })
	set("db-port", "DB_PORT", func() { cfg.DBPort = f.dbPort })
	set("db-name", "DB_NAME", func() { cfg.DBName = f.dbName })
	set("db-user", "DB_USER", func() { cfg.DBUser = f.dbUser })
	set("db-sslmode", "DB_SSLMODE", func() { cfg.DBSSLMode = f.dbSSLMode })
	set("sqlite", "SQLITE_PATH", func() { cfg.SQLitePath = f.sqlitePath })
	set("write-timeout", "WRITE_TIMEOUT", func() { cfg.WriteTimeout = f.writeTimeout })
	set("http", "HTTP_ADDR", func() { cfg.HTTPAddr = f.httpAddr })
}
