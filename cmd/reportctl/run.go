package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	appctx "reportengine/internal/core/context"
	"reportengine/internal/domain/records"
	"reportengine/internal/domain/reports"
	"reportengine/internal/export"
	"reportengine/internal/infrastructure/storage/memory"
	"reportengine/internal/infrastructure/storage/postgres"
	"reportengine/internal/infrastructure/storage/postgres/report_repo"
	"reportengine/pkg/logger"
)

type runOptions struct {
	configPath string
	fixtures   string
	format     string
	output     string
	maxRows    int
}

func runCmd(v *viper.Viper) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a report configuration",
		Example: `  reportctl run -c revenue.yaml --fixtures rows.yaml --org org-1
  REPORTCTL_DSN=postgres://... reportctl run -c revenue.yaml --org org-1 --format xlsx -o revenue.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), v, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "report configuration (YAML or JSON)")
	cmd.Flags().StringVar(&opts.fixtures, "fixtures", "", "fixtures file to read records from")
	cmd.Flags().String("dsn", "", "PostgreSQL connection string")
	cmd.Flags().String("org", "", "organization id to scope records to")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format (table, json, csv, xlsx)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().IntVar(&opts.maxRows, "max-rows", reports.DefaultMaxRows, "row cap per execution (0 disables)")
	_ = cmd.MarkFlagRequired("config")
	_ = v.BindPFlag("dsn", cmd.Flags().Lookup("dsn"))
	_ = v.BindPFlag("org", cmd.Flags().Lookup("org"))
	return cmd
}

func runReport(ctx context.Context, stdout io.Writer, v *viper.Viper, opts runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var format export.Format
	switch opts.format {
	case "table", "json":
	default:
		f, err := export.ParseFormat(opts.format)
		if err != nil {
			return err
		}
		if f == export.FormatXLSX && opts.output == "" {
			return errors.New("xlsx output needs --output")
		}
		format = f
	}

	cfg, err := loadConfiguration(opts.configPath)
	if err != nil {
		return err
	}

	org := v.GetString("org")
	if org == "" {
		return errors.New("--org is required")
	}

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	log, err := logger.New(logger.Config{Level: v.GetString("log-level"), OutputPaths: []string{"stderr"}})
	if err != nil {
		return err
	}
	ctx = logger.WithLogger(ctx, log)

	repo, closeRepo, err := openRepository(ctx, v.GetString("dsn"), opts.fixtures)
	if err != nil {
		return err
	}
	defer closeRepo()

	registry, err := records.NewRegistry()
	if err != nil {
		return err
	}
	svc := reports.NewService(repo, registry, reports.Options{MaxRows: opts.maxRows, Location: loc})

	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "reportctl", OrganizationID: org})
	res, err := svc.Execute(ctx, cfg)
	if err != nil {
		return err
	}

	out := stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch opts.format {
	case "table":
		renderTable(out, res)
		return nil
	case "json":
		return printJSON(out, res)
	}
	return export.Write(out, format, res)
}

func loadConfiguration(path string) (reports.Configuration, error) {
	var cfg reports.Configuration
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	// yaml.v3 reads JSON documents as well.
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func openRepository(ctx context.Context, dsn, fixtures string) (reports.Repository, func(), error) {
	switch {
	case fixtures != "" && dsn != "":
		return nil, nil, errors.New("use either --fixtures or --dsn")
	case fixtures != "":
		store, err := memory.LoadFixturesFile(fixtures)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case dsn != "":
		poolCfg := postgres.DefaultPoolConfig(dsn)
		poolCfg.MaxConns = 2
		poolCfg.MinConns = 0
		poolCfg.ApplicationName = "reportctl"
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, nil, err
		}
		repo := report_repo.NewReportRepo(postgres.NewTxManager(pool, postgres.DefaultTxOptions()))
		return repo, pool.Close, nil
	}
	return nil, nil, errors.New("one of --fixtures or --dsn is required")
}

func renderTable(w io.Writer, res *reports.Results) {
	columns := export.Columns(res)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(columns))
	for i, h := range export.Headers(columns) {
		header[i] = h
	}
	tw.AppendHeader(header)

	numeric := make(map[int]bool)
	for _, row := range res.Data {
		line := make(table.Row, len(columns))
		for i, col := range columns {
			switch row[col].(type) {
			case int, int32, int64, float32, float64:
				numeric[i+1] = true
			}
			line[i] = export.FormatCell(row[col])
		}
		tw.AppendRow(line)
	}

	var configs []table.ColumnConfig
	for n := range numeric {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	tw.AppendFooter(table.Row{fmt.Sprintf("%d of %d rows, %d ms", len(res.Data), res.TotalRows, res.ExecutionTime)})
	tw.Render()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
