/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidemark/docstore/errors"
)

const sampleYAML = `
environment: staging
connections:
  primary:
    provider: dynamodb
    region: us-west-2
    table: documents
  scratch:
    provider: memory
limits:
  maxPageSize: 500
logging:
  level: debug
  development: true
models:
  - name: product
    database: catalog
    container: products
    partitionKeyProperty: category
    readConnection: primary
    writeConnection: primary
  - name: session
    partitionKeyProperty: userId
    readConnection: scratch
    writeConnection: scratch
`

func TestParse(t *testing.T) {
	t.Run("FullConfiguration", func(t *testing.T) {
		cfg, err := Parse([]byte(sampleYAML))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if cfg.Environment != "staging" {
			t.Errorf("unexpected environment %q", cfg.Environment)
		}
		conn, ok := cfg.Connections["primary"]
		if !ok || conn.Provider != ProviderDynamoDB || conn.Table != "documents" {
			t.Errorf("primary connection not decoded: %+v", conn)
		}
		binding, ok := cfg.Binding("product")
		if !ok || binding.PartitionKeyProperty != "category" || binding.ReadConnection != "primary" {
			t.Errorf("model binding not decoded: %+v", binding)
		}
	})

	t.Run("DefaultsApply", func(t *testing.T) {
		cfg, err := Parse([]byte("{}"))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if cfg.Environment != "development" {
			t.Errorf("expected development default, got %q", cfg.Environment)
		}
		if conn := cfg.Connections["default"]; conn.Provider != ProviderMemory {
			t.Errorf("expected a default memory connection, got %+v", cfg.Connections)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info default, got %q", cfg.Logging.Level)
		}
	})

	t.Run("SoleConnectionIsImplicit", func(t *testing.T) {
		doc := `
connections:
  main:
    provider: memory
models:
  - name: product
    partitionKeyProperty: category
`
		cfg, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		binding, _ := cfg.Binding("product")
		if binding.ReadConnection != "main" || binding.WriteConnection != "main" {
			t.Errorf("expected sole connection to be implied, got %+v", binding)
		}
	})

	t.Run("AmbiguousConnectionRejected", func(t *testing.T) {
		doc := `
connections:
  a:
    provider: memory
  b:
    provider: memory
models:
  - name: product
    partitionKeyProperty: category
`
		_, err := Parse([]byte(doc))
		if !errors.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("UnknownConnectionReferenceRejected", func(t *testing.T) {
		doc := `
connections:
  main:
    provider: memory
models:
  - name: product
    partitionKeyProperty: category
    readConnection: elsewhere
`
		_, err := Parse([]byte(doc))
		if !errors.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("LimitsDefaultWhenZero", func(t *testing.T) {
		cfg, err := Parse([]byte(sampleYAML))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		limits := cfg.ValidationLimits()
		if limits.MaxPageSize != 500 {
			t.Errorf("configured ceiling must win, got %d", limits.MaxPageSize)
		}
		if limits.MaxBatchSize != 100 || limits.MaxConcurrency != 50 {
			t.Errorf("unset ceilings must default, got %+v", limits)
		}
	})

	t.Run("CredentialsFromEnvironment", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
		cfg, err := Parse([]byte(sampleYAML))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		conn := cfg.Connections["primary"]
		if conn.AccessKeyID != "AKIATEST" || conn.SecretAccessKey != "secret" {
			t.Error("credentials must be read from the environment")
		}
	})

	t.Run("UnknownProviderRejected", func(t *testing.T) {
		_, err := Parse([]byte("connections:\n  main:\n    provider: carrierpigeon\n"))
		if !errors.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("DynamoRequiresRegionAndTable", func(t *testing.T) {
		_, err := Parse([]byte("connections:\n  main:\n    provider: dynamodb\n"))
		if !errors.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("DuplicateModelRejected", func(t *testing.T) {
		doc := `
models:
  - name: product
    partitionKeyProperty: category
  - name: product
    partitionKeyProperty: category
`
		_, err := Parse([]byte(doc))
		if !errors.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})

	t.Run("BadLogLevelRejected", func(t *testing.T) {
		_, err := Parse([]byte("logging:\n  level: shouting\n"))
		if !errors.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("ReadsFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docstore.yaml")
		if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Connections["primary"].Region != "us-west-2" {
			t.Errorf("unexpected region %q", cfg.Connections["primary"].Region)
		}
	})

	t.Run("MissingFileIsConfigurationError", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if !errors.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestBuildLogger(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	logger, err := cfg.BuildLogger()
	if err != nil {
		t.Fatalf("BuildLogger failed: %v", err)
	}
	logger.Debug("logger constructed")
	_ = logger.Sync()
}
