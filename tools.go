//go:build tools

package tools

// This file tracks versions of CLI tool dependencies.
// It is not compiled into the binary.
//
// The blank import below, behind the "tools" build tag, keeps the goose
// CLI's version pinned in go.mod.
// Run it: go run github.com/pressly/goose/v3/cmd/goose -dir internal/jobstore/migrations sqlite3 ./data/jobs.db status

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
)
