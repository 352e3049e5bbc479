package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/schema"
)

func ddlCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Generate and run Oracle DDL",
	}
	cmd.PersistentFlags().BoolVar(&apply, "apply", false, "execute generated statements instead of printing them")

	// emit prints stmts, or runs them with --apply.
	emit := func(cmd *cobra.Command, s *session, stmts []string) error {
		if !apply {
			for _, stmt := range stmts {
				fmt.Fprintln(cmd.OutOrStdout(), stmt)
				fmt.Fprintln(cmd.OutOrStdout(), "/")
			}
			return nil
		}
		return s.eng.Apply(cmd.Context(), stmts)
	}

	var columns []string
	create := &cobra.Command{
		Use:   "create-table TABLE",
		Short: "CREATE TABLE from NAME:TYPE[:LENGTH][:null][:unique][:ref=TABLE[.COL]] columns",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			specs := make([]schema.ColumnSpec, 0, len(columns))
			for _, c := range columns {
				spec, err := parseColumn(c)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}
			stmts, err := s.eng.Dialect().CreateTable(args[0], specs)
			if err != nil {
				return err
			}
			return emit(cmd, s, stmts)
		}),
	}
	create.Flags().StringArrayVar(&columns, "column", nil, "column definition (repeatable)")

	addColumn := &cobra.Command{
		Use:   "add-column TABLE COLUMN",
		Short: "ALTER TABLE ... ADD a column given as NAME:TYPE[:...]",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			spec, err := parseColumn(args[1])
			if err != nil {
				return err
			}
			stmts, err := s.eng.Dialect().AddColumn(args[0], spec)
			if err != nil {
				return err
			}
			return emit(cmd, s, stmts)
		}),
	}

	dropColumns := &cobra.Command{
		Use:   "drop-columns TABLE COLUMN...",
		Short: "ALTER TABLE ... DROP columns",
		Args:  cobra.MinimumNArgs(2),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			stmt, err := s.eng.Dialect().DropColumns(args[0], args[1:]...)
			if err != nil {
				return err
			}
			return emit(cmd, s, []string{stmt})
		}),
	}

	dropTable := &cobra.Command{
		Use:   "drop-table TABLE",
		Short: "Drop a table with its autoincrement sequence and trigger",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			if !apply {
				return emit(cmd, s, s.eng.Dialect().DropTableStatements(args[0]))
			}
			return s.eng.DropTable(cmd.Context(), args[0])
		}),
	}

	var start int
	resetSeq := &cobra.Command{
		Use:   "reset-sequence TABLE",
		Short: "Recreate a table's autoincrement sequence (at MAX(pk)+1 unless --start)",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.eng.DescribeTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var value *int
			if cmd.Flags().Changed("start") {
				value = &start
			}
			return s.eng.ResetSequence(cmd.Context(), t, value)
		}),
	}
	resetSeq.Flags().IntVar(&start, "start", 1, "first value of the new sequence")

	var schemaName string
	var enable bool
	integrity := &cobra.Command{
		Use:   "integrity",
		Short: "Enable or disable every constraint of a schema",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			return s.eng.SetIntegrity(cmd.Context(), schemaName, enable)
		}),
	}
	integrity.Flags().StringVar(&schemaName, "schema", "", "schema (default schema when empty)")
	integrity.Flags().BoolVar(&enable, "enable", false, "enable constraints (default disables)")

	cmd.AddCommand(create, addColumn, dropColumns, dropTable, resetSeq, integrity)
	return cmd
}

// parseColumn reads NAME:TYPE[:LENGTH][:null][:unique][:ref=TABLE[.COL]].
func parseColumn(s string) (schema.ColumnSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return schema.ColumnSpec{}, errs.Newf(errs.ErrKindInvalidInput, "invalid column %q, want NAME:TYPE[:...]", s)
	}
	spec := schema.ColumnSpec{Name: strings.TrimSpace(parts[0]), Type: strings.TrimSpace(parts[1])}
	for _, opt := range parts[2:] {
		opt = strings.TrimSpace(opt)
		switch {
		case strings.EqualFold(opt, "null"):
			spec.AllowNull = true
		case strings.EqualFold(opt, "unique"):
			spec.IsUnique = true
		case strings.HasPrefix(strings.ToLower(opt), "ref="):
			ref := opt[len("ref="):]
			if i := strings.LastIndexByte(ref, '.'); i >= 0 {
				spec.RefTable, spec.RefField = ref[:i], ref[i+1:]
			} else {
				spec.RefTable = ref
			}
		default:
			n, err := strconv.Atoi(opt)
			if err != nil || n <= 0 {
				return schema.ColumnSpec{}, errs.Newf(errs.ErrKindInvalidInput, "invalid column option %q in %q", opt, s)
			}
			spec.Length = &n
		}
	}
	return spec, nil
}
