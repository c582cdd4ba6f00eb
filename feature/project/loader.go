package project

import (
	"relsave/core/metrics"
	"relsave/core/relsave"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
	enabled bool
}

// NewFeature creates a new project feature. It is disabled without a database.
func NewFeature(db *gorm.DB, journal relsave.Journal, recorder *metrics.Recorder, logger *zap.Logger) *Feature {
	svc := NewService(db, journal, recorder, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h, enabled: db != nil}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "project"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
