package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DachengChen/askSQL/session"
	"github.com/DachengChen/askSQL/tui"
	"github.com/spf13/cobra"
)

func newAskCmd(o *options, rt func() *runtime) *cobra.Command {
	var (
		table  string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Generate one statement for a question about --table and run it",
		Example: `  asksql ask -d shop -t dbo.Customers "top 5 customers by name"
  asksql ask -d shop -t dbo.Customers --dry-run "delete customers without orders"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rt()
			defer r.close()

			if o.database == "" || table == "" {
				return errors.New("ask needs --database and --table")
			}
			question := strings.Join(args, " ")
			ctx, cancel := r.context(cmd.Context())
			defer cancel()

			s := session.New()
			if err := r.assistant.Connect(ctx, s, o.connection()); err != nil {
				return err
			}
			if err := r.assistant.SelectDatabase(ctx, s, o.database); err != nil {
				return err
			}
			if err := r.assistant.SelectTable(ctx, s, parseTableRef(s.Config.Engine, table)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				q, err := r.assistant.Generate(ctx, s, question)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, q.Text)
				return nil
			}

			answer, err := r.assistant.Ask(ctx, s, question)
			if answer.Query != "" {
				fmt.Fprintln(out, answer.Query)
				fmt.Fprintln(out)
			}
			if err != nil {
				return err
			}
			for _, line := range tui.FormatResult(answer.Result) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "table as schema.name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the generated statement without running it")
	return cmd
}
