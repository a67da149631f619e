/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// configcheck validates a docstore configuration file and prints what the
// engine would run with: provider, table, ceilings and model bindings.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/tidemark/docstore"
	"github.com/tidemark/docstore/config"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configPath  = flag.String("config", "docstore.yaml", "Path to the configuration file")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := docstore.GetVersionInfo()
		fmt.Printf("docstore configcheck version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("environment: %s\n", cfg.Environment)

	names := make([]string, 0, len(cfg.Connections))
	for name := range cfg.Connections {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("connections: %d\n", len(names))
	for _, name := range names {
		conn := cfg.Connections[name]
		switch conn.Provider {
		case config.ProviderDynamoDB:
			fmt.Printf("  - %s: dynamodb region=%s table=%s\n", name, conn.Region, conn.Table)
			if conn.AccessKeyID == "" {
				fmt.Printf("    warning: no AWS credentials in the environment\n")
			}
		default:
			fmt.Printf("  - %s: %s\n", name, conn.Provider)
		}
	}

	limits := cfg.ValidationLimits()
	fmt.Printf("limits:      pageSize<=%d batchSize<=%d concurrency<=%d\n",
		limits.MaxPageSize, limits.MaxBatchSize, limits.MaxConcurrency)

	fmt.Printf("models:      %d\n", len(cfg.Models))
	for _, m := range cfg.Models {
		fmt.Printf("  - %s (partition key: %s, read: %s, write: %s)\n",
			m.Name, m.PartitionKeyProperty, m.ReadConnection, m.WriteConnection)
	}
}
