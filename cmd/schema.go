package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/session"
	"github.com/spf13/cobra"
)

func newSchemaCmd(o *options, rt func() *runtime) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List databases, or the tables of --database, or the columns of --table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rt()
			defer r.close()
			ctx, cancel := r.context(cmd.Context())
			defer cancel()

			out := cmd.OutOrStdout()
			s := session.New()
			if err := r.assistant.Connect(ctx, s, o.connection()); err != nil {
				return err
			}
			if o.database == "" {
				printList(out, s.Databases)
				return nil
			}

			if err := r.assistant.SelectDatabase(ctx, s, o.database); err != nil {
				return err
			}
			if table == "" {
				for _, t := range s.Tables {
					fmt.Fprintln(out, t.String())
				}
				return nil
			}

			if err := r.assistant.SelectTable(ctx, s, parseTableRef(s.Config.Engine, table)); err != nil {
				return err
			}
			printList(out, s.Columns)
			return nil
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "table as schema.name (requires --database)")
	return cmd
}

func printList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintln(w, item)
	}
}

// parseTableRef splits "schema.name". A bare name gets the engine's
// default schema.
func parseTableRef(engine config.Engine, s string) db.TableRef {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "."); i > 0 {
		return db.TableRef{Schema: s[:i], Name: s[i+1:]}
	}
	schema := "dbo"
	if engine == config.EnginePostgres {
		schema = "public"
	}
	return db.TableRef{Schema: schema, Name: s}
}
