// Command lakegrant manages data-lake permissions from the terminal:
// execute statements, check access, inspect and export state, or run the
// demo. The backend (in-memory or AWS Lake Formation) is selected by flags
// or a YAML config file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lakegrant/lakegrant"
	"github.com/lakegrant/lakegrant/internal/sample"
	"github.com/lakegrant/lakegrant/pkg/backend"
	"github.com/lakegrant/lakegrant/pkg/export"
	"github.com/lakegrant/lakegrant/pkg/model"
)

var (
	flagConfig     string
	flagBackend    string
	flagStateFile  string
	flagSQLiteFile string
	flagRegion     string
	flagProfile    string
	flagEndpoint   string
	flagVerbose    bool
)

var (
	allowedText = color.New(color.FgGreen, color.Bold).Sprint("ALLOWED")
	deniedText  = color.New(color.FgRed, color.Bold).Sprint("DENIED")
)

func main() {
	root := &cobra.Command{
		Use:           "lakegrant",
		Short:         "Data-lake permission engine and Lake Formation testing tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	pf.StringVar(&flagBackend, "backend", "", "backend kind: memory or aws")
	pf.StringVar(&flagStateFile, "state-file", "", "persist memory backend to a JSON snapshot file")
	pf.StringVar(&flagSQLiteFile, "sqlite-file", "", "persist memory backend to a SQLite file")
	pf.StringVar(&flagRegion, "region", "", "AWS region")
	pf.StringVar(&flagProfile, "profile", "", "AWS profile")
	pf.StringVar(&flagEndpoint, "endpoint", "", "custom AWS endpoint")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(executeCmd(), checkCmd(), statusCmd(), exportCmd(), demoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func loadConfig() (lakegrant.Config, error) {
	cfg := lakegrant.DefaultConfig()
	if flagConfig != "" {
		var err error
		cfg, err = lakegrant.LoadConfig(flagConfig)
		if err != nil {
			return lakegrant.Config{}, err
		}
	}
	// Flags override the file.
	if flagBackend != "" {
		cfg.Backend = lakegrant.BackendKind(flagBackend)
	}
	if flagStateFile != "" {
		cfg.StateFile = flagStateFile
	}
	if flagSQLiteFile != "" {
		cfg.SQLiteFile = flagSQLiteFile
	}
	if flagRegion != "" {
		cfg.AWS.Region = flagRegion
	}
	if flagProfile != "" {
		cfg.AWS.Profile = flagProfile
	}
	if flagEndpoint != "" {
		cfg.AWS.Endpoint = flagEndpoint
	}
	return cfg, nil
}

func newBackend(ctx context.Context) (backend.Backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return lakegrant.New(ctx, cfg, newLogger())
}

func executeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <statement>...",
		Short: "Execute one or more permission statements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			for _, text := range args {
				outcome, err := b.ExecuteStatement(cmd.Context(), text)
				if err != nil {
					return err
				}
				fmt.Println(outcome)
				if outcome.Kind == backend.OutcomeError {
					return fmt.Errorf("statement failed: %s", text)
				}
			}
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	var contextPairs []string
	cmd := &cobra.Command{
		Use:   "check <principal> <action> <resource>",
		Short: "Check whether a principal may perform an action on a resource",
		Example: `  lakegrant check "ROLE analyst" SELECT sales.orders
  lakegrant check "USER alice@corp.com" SELECT "DATABASE sales" --context user_region=west`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, err := parsePrincipal(args[0])
			if err != nil {
				return err
			}
			action, err := model.ParseAction(args[1])
			if err != nil {
				return err
			}
			resource, err := parseResource(args[2])
			if err != nil {
				return err
			}

			b, err := newBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if len(contextPairs) > 0 {
				sessionContext, err := parseContext(contextPairs)
				if err != nil {
					return err
				}
				if err := b.SetSessionContext(cmd.Context(), sessionContext); err != nil {
					return err
				}
			}

			allowed, err := b.CheckPermission(cmd.Context(), principal, resource, action)
			if err != nil {
				return err
			}
			verdict := deniedText
			if allowed {
				verdict = allowedText
			}
			fmt.Printf("%s -> %s -> %s: %s\n", principal, action, resource, verdict)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&contextPairs, "context", nil, "session context entry key=value (repeatable)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show permissions, roles, tags and session context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			mem, ok := b.(*backend.Memory)
			if !ok {
				return fmt.Errorf("status requires the memory backend; use ListPermissions against aws")
			}
			fmt.Print(export.Summary(mem.Store().Snapshot()))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export state as executable statements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			mem, ok := b.(*backend.Memory)
			if !ok {
				return fmt.Errorf("export requires the memory backend")
			}
			for _, stmt := range export.Statements(mem.Store().Snapshot()) {
				fmt.Println(stmt)
			}
			return nil
		},
	}
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Seed sample permissions and walk through checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := newBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			return runDemo(cmd.Context(), b)
		},
	}
}

func runDemo(ctx context.Context, b backend.Backend) error {
	fmt.Println("Seeding sample state:")
	for _, text := range sample.SeedStatements() {
		outcome, err := b.ExecuteStatement(ctx, text)
		if err != nil {
			return err
		}
		fmt.Printf("  %s\n", outcome)
	}
	if mem, ok := b.(*backend.Memory); ok {
		if err := mem.AddMember("analyst", "alice@corp.com"); err != nil {
			return err
		}
		if err := mem.AddMember("data_scientist", "dave@corp.com"); err != nil {
			return err
		}
	}

	scenarios := []struct {
		name           string
		sessionContext map[string]string
		principal      model.Principal
		action         model.Action
		resource       model.Resource
	}{
		{
			name:           "analyst reads a covered table",
			sessionContext: map[string]string{"user_region": "west"},
			principal:      model.NewUser("alice@corp.com"),
			action:         model.ActionSelect,
			resource:       model.NewTable("sales", "customers", nil),
		},
		{
			name:           "scientist in the right region",
			sessionContext: map[string]string{"user_region": "west"},
			principal:      model.NewUser("dave@corp.com"),
			action:         model.ActionSelect,
			resource:       model.NewTable("sales", "orders", nil),
		},
		{
			name:           "scientist in the wrong region",
			sessionContext: map[string]string{"user_region": "east"},
			principal:      model.NewUser("dave@corp.com"),
			action:         model.ActionSelect,
			resource:       model.NewTable("sales", "orders", nil),
		},
		{
			name:           "no grant at all",
			sessionContext: map[string]string{"user_region": "west"},
			principal:      model.NewUser("mallory@corp.com"),
			action:         model.ActionDelete,
			resource:       model.NewTable("sales", "orders", nil),
		},
	}

	fmt.Println("\nChecks:")
	for _, sc := range scenarios {
		if err := b.SetSessionContext(ctx, sc.sessionContext); err != nil {
			return err
		}
		allowed, err := b.CheckPermission(ctx, sc.principal, sc.resource, sc.action)
		if err != nil {
			return err
		}
		verdict := deniedText
		if allowed {
			verdict = allowedText
		}
		fmt.Printf("  %-32s %s -> %s -> %s: %s\n", sc.name+":", sc.principal, sc.action, sc.resource, verdict)
	}
	return nil
}
