package storage_test

import (
	"testing"
	"time"

	"relsave/core/storage"

	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    false,
			Bucket:    "test-bucket",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTP", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "http://localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    false,
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTPS", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "https://s3.amazonaws.com",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    true,
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestConfigEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		host    string
		secure  bool
		timeout time.Duration
	}{
		{"bare", storage.Config{Endpoint: "localhost:9000"}, "localhost:9000", false, 30 * time.Second},
		{"http", storage.Config{Endpoint: "http://minio:9000", TimeoutSeconds: 5}, "minio:9000", false, 5 * time.Second},
		{"https", storage.Config{Endpoint: "https://s3.amazonaws.com"}, "s3.amazonaws.com", true, 30 * time.Second},
		{"ssl flag", storage.Config{Endpoint: "minio:9000", UseSSL: true, TimeoutSeconds: -1}, "minio:9000", true, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.host, tt.cfg.Host())
			assert.Equal(t, tt.secure, tt.cfg.Secure())
			assert.Equal(t, tt.timeout, tt.cfg.Timeout())
		})
	}
}
