package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AshkanYarmoradi/go-stoat/adapters/postgres"
	"github.com/AshkanYarmoradi/go-stoat/cli/config"
	"github.com/AshkanYarmoradi/go-stoat/cli/styles"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the PostgreSQL event store schema",
		Long: `Create the schema, tables and indexes the PostgreSQL event stream needs.
The statements are idempotent, so running migrate twice is safe.

Examples:
  stoat migrate          # Apply the schema
  stoat migrate --print  # Print the SQL without connecting`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			if cfg.Store.Driver != config.DriverPostgres {
				fmt.Fprintln(out, styles.FormatInfo(fmt.Sprintf("The %s driver doesn't require migrations", cfg.Store.Driver)))
				return nil
			}

			if printOnly {
				fmt.Fprint(out, postgres.MigrationSQL(cfg.Store.Schema))
				return nil
			}

			stream, err := postgres.NewStream(cfg.DatabaseURL(), postgres.WithSchema(cfg.Store.Schema))
			if err != nil {
				return err
			}
			defer stream.Close()

			if err := stream.Migrate(commandContext(cmd)); err != nil {
				return err
			}

			fmt.Fprintln(out, styles.FormatSuccess(fmt.Sprintf("Schema %q is up to date", cfg.Store.Schema)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the migration SQL instead of applying it")

	return cmd
}
