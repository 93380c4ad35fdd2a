package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"glauk-api/internal/logger"

	"go.uber.org/zap"
)

// Execer is the subset of *sql.DB the migrator needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RunMigrations executes every *.up.sql file in dir in lexical order. Oracle
// accepts one statement per call, so files are split on terminating semicolons.
func RunMigrations(ctx context.Context, db Execer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("could not read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}
		for i, stmt := range SplitStatements(string(content)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s statement %d: %w", name, i+1, err)
			}
		}
		logger.Get().Info("Executed migration", zap.String("file", name))
	}

	logger.Get().Info("Migrations completed", zap.Int("files", len(files)))
	return nil
}

// SplitStatements breaks a script into statements ending with ";" at end of
// line, dropping the semicolon and "--" comment lines.
func SplitStatements(script string) []string {
	var (
		stmts   []string
		current strings.Builder
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			current.WriteString(strings.TrimSuffix(strings.TrimRight(line, " \t\r"), ";"))
			stmts = append(stmts, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		stmts = append(stmts, rest)
	}
	return stmts
}
