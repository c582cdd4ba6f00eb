package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg))
	app.Get("/projects/1", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendString("metrics") })
	return app
}

func TestAuth(t *testing.T) {
	app := setupApp(Config{ApiKey: "secret", Skip: []string{"/metrics"}})

	tests := []struct {
		name   string
		path   string
		header string
		value  string
		want   int
	}{
		{"MissingKey", "/projects/1", "", "", fiber.StatusUnauthorized},
		{"WrongKey", "/projects/1", HeaderName, "nope", fiber.StatusUnauthorized},
		{"HeaderKey", "/projects/1", HeaderName, "secret", fiber.StatusOK},
		{"BearerKey", "/projects/1", fiber.HeaderAuthorization, "Bearer secret", fiber.StatusOK},
		{"Skipped", "/metrics", "", "", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuth_EmptyKeyDisables(t *testing.T) {
	app := setupApp(Config{})

	resp, err := app.Test(httptest.NewRequest("GET", "/projects/1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
