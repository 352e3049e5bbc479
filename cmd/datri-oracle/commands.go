package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/datri-oracle/internal/database"
	"github.com/koustreak/datri-oracle/internal/errs"
	"github.com/koustreak/datri-oracle/internal/oracle"
	"github.com/koustreak/datri-oracle/internal/schema"
	"github.com/koustreak/datri-oracle/internal/server"
	"github.com/koustreak/datri-oracle/internal/snapshot"
	"github.com/koustreak/datri-oracle/internal/snapshot/minio"
)

func schemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List schemas visible to the connected user",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			names, err := s.eng.ListSchemas(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), names)
		}),
	}
}

func tablesCmd() *cobra.Command {
	var schemaName string
	var views bool
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables (or views) of a schema",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			list := s.eng.ListTables
			if views {
				list = s.eng.ListViews
			}
			tables, err := list(cmd.Context(), schemaName)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tables)
		}),
	}
	cmd.Flags().StringVar(&schemaName, "schema", "", "schema to list (default schema when empty)")
	cmd.Flags().BoolVar(&views, "views", false, "list views instead of tables")
	return cmd
}

func describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe TABLE",
		Short: "Describe a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.eng.DescribeTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t.ToMap())
		}),
	}
}

func routinesCmd() *cobra.Command {
	var kindName, schemaName string
	cmd := &cobra.Command{
		Use:   "routines [NAME]",
		Short: "List stored routines, or describe one by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			kind, err := parseKind(kindName)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				r, err := s.eng.DescribeRoutine(cmd.Context(), kind, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), r)
			}
			list, err := s.eng.ListRoutines(cmd.Context(), kind, schemaName)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		}),
	}
	cmd.Flags().StringVar(&kindName, "kind", "procedure", "procedure or function")
	cmd.Flags().StringVar(&schemaName, "schema", "", "schema to list (default schema when empty)")
	return cmd
}

func queryCmd() *cobra.Command {
	var opts oracle.ListOptions
	var fields, filter string
	cmd := &cobra.Command{
		Use:   "query TABLE",
		Short: "Read records from a table",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			if fields != "" {
				opts.Fields = strings.Split(fields, ",")
			}
			opts.Filter = database.Raw(filter)
			res, err := oracle.NewReader(s.eng).List(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&fields, "fields", "", "comma-separated fields (default all)")
	f.StringVar(&filter, "filter", "", "SQL condition added to WHERE")
	f.StringVar(&opts.Order, "order", "", `order clause, e.g. "name desc, id"`)
	f.StringVar(&opts.Group, "group", "", "comma-separated group fields")
	f.IntVar(&opts.Limit, "limit", 0, "maximum records (capped by engine.max_records)")
	f.IntVar(&opts.Offset, "offset", 0, "records to skip")
	f.BoolVar(&opts.IncludeCount, "count", false, "include the total count")
	f.BoolVar(&opts.CountOnly, "count-only", false, "return only the total count")
	return cmd
}

func callCmd() *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "call procedure|function NAME",
		Short: "Call a stored procedure or function",
		Args:  cobra.ExactArgs(2),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			values, err := parseArgs(pairs)
			if err != nil {
				return err
			}
			res, err := s.eng.CallRoutine(cmd.Context(), kind, args[1], values)
			if err != nil {
				return err
			}
			if res.Unsupported {
				s.log.Warn("routine call is not supported by this database")
			}
			return printJSON(cmd.OutOrStdout(), res)
		}),
	}
	cmd.Flags().StringArrayVarP(&pairs, "arg", "a", nil, "parameter value as NAME=VALUE (repeatable)")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema graph over HTTP",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			return server.New(s.cfg.Server, s.eng, s.log).ListenAndServe(cmd.Context())
		}),
	}
}

func snapshotCmd() *cobra.Command {
	var schemaName string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive schema snapshots to object storage",
	}
	cmd.PersistentFlags().StringVar(&schemaName, "schema", "", "schema (default schema when empty)")

	archive := func(cmd *cobra.Command, s *session) (*snapshot.Archive, error) {
		if !s.cfg.Snapshot.Enabled() {
			return nil, errs.New(errs.ErrKindInvalidInput, "snapshot.endpoint is not configured")
		}
		store, err := minio.New(cmd.Context(), s.cfg.Snapshot)
		if err != nil {
			return nil, err
		}
		return snapshot.New(store, s.eng, s.cfg.Snapshot.Prefix, s.log), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Capture and store a snapshot",
			Args:  cobra.NoArgs,
			RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
				a, err := archive(cmd, s)
				if err != nil {
					return err
				}
				key, err := a.Save(cmd.Context(), schemaName)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored snapshots",
			Args:  cobra.NoArgs,
			RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
				a, err := archive(cmd, s)
				if err != nil {
					return err
				}
				name, err := resolveSchema(cmd, s, schemaName)
				if err != nil {
					return err
				}
				objs, err := a.List(cmd.Context(), name)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), objs)
			}),
		},
		&cobra.Command{
			Use:   "show [KEY]",
			Short: "Print a stored snapshot (the latest when KEY is omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
				a, err := archive(cmd, s)
				if err != nil {
					return err
				}
				var snap *snapshot.Snapshot
				if len(args) == 1 {
					snap, err = a.Load(cmd.Context(), args[0])
				} else {
					var name string
					if name, err = resolveSchema(cmd, s, schemaName); err == nil {
						snap, err = a.Latest(cmd.Context(), name)
					}
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), snap)
			}),
		},
	)
	return cmd
}

func resolveSchema(cmd *cobra.Command, s *session, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	return s.eng.DefaultSchema(cmd.Context())
}

func parseKind(s string) (schema.RoutineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "procedure", "proc", "p":
		return schema.KindProcedure, nil
	case "function", "func", "f":
		return schema.KindFunction, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unknown routine kind %q (want procedure or function)", s)
}

// parseArgs turns NAME=VALUE pairs into call arguments. Integers and
// floats are converted; "null" becomes nil; anything else stays a string.
func parseArgs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "invalid argument %q, want NAME=VALUE", p)
		}
		out[name] = scalar(raw)
	}
	return out, nil
}

func scalar(raw string) any {
	if strings.EqualFold(raw, "null") {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
