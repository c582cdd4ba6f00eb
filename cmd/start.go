package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relsave/core/database"
	"relsave/core/loader"
	"relsave/core/logger"
	"relsave/core/metrics"
	"relsave/core/middleware/auth"
	"relsave/core/middleware/rayid"
	"relsave/core/relsave"
	"relsave/feature/project"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title relsave API
// @version 1.0
// @description API for saving projects together with their relations.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logg := setup()
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// Database (optional, the project feature is disabled without it)
		var db *gorm.DB
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed", zap.Error(err))
		} else {
			db = conn
			logg.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
		}

		// Save journal (optional)
		var journal relsave.Journal
		if j, err := openJournal(cmd.Context(), cfg.Storage, logg); err != nil {
			logg.Warn("Save journal unavailable", zap.Error(err))
		} else if j != nil {
			journal = j
			logg.Info("Save journal enabled", zap.String("bucket", cfg.Storage.Bucket))
		}

		recorder := metrics.New(cfg.Metrics.Namespace)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimit(),
		})

		mgr := loader.NewManager(logg)
		if err := mgr.Register(project.NewFeature(db, journal, recorder, logg)); err != nil {
			log.Fatalf("Failed to register features: %v", err)
		}

		// RayID first so every later log line carries it
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		var skip []string
		if cfg.Metrics.Enabled {
			app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(recorder.Handler()))
			skip = append(skip, cfg.Metrics.Path)
		}

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: skip}))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.ShutdownWithTimeout(time.Duration(cfg.Server.ShutdownSeconds) * time.Second)
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
