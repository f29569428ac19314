// Package main is the entry point for the bitproto compiler CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bitproto/bitproto/codec"
	"github.com/bitproto/bitproto/internal/config"
	"github.com/bitproto/bitproto/internal/descriptor"
	"github.com/bitproto/bitproto/internal/diag"
	"github.com/bitproto/bitproto/internal/ir"
	"github.com/bitproto/bitproto/internal/lint"
	"github.com/bitproto/bitproto/internal/loader"
	"github.com/bitproto/bitproto/internal/watch"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configPath  string
	importPaths []string
	noLint      bool
	logLevel    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "bitproto",
		Short:         "Compiler and toolchain for bit-packed binary message schemas",
		Long:          `bitproto compiles .bitproto schemas describing fixed-size, bit-packed binary messages and provides schema checking, inspection and buffer decoding.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to bitproto.yaml")
	rootCmd.PersistentFlags().StringSliceVarP(&importPaths, "import-path", "I", nil, "Additional import search directories")
	rootCmd.PersistentFlags().BoolVar(&noLint, "no-lint", false, "Suppress lint warnings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newCheckCmd(), newDescribeCmd(), newDecodeCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger.
func setup() (*config.Config, *slog.Logger, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat("bitproto.yaml"); err == nil {
			path = "bitproto.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if len(importPaths) > 0 {
		cfg.Compile.ImportPaths = append(cfg.Compile.ImportPaths, importPaths...)
	}
	if noLint {
		cfg.Lint.Enabled = false
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// compile loads and analyzes path plus imports, runs lint, and renders
// every finding. It reports whether the build succeeded.
func compile(cfg *config.Config, path string) (*ir.Proto, *loader.Loader, bool) {
	l := loader.New(cfg.Compile.ImportPaths...)
	p, ds := l.Load(path)

	if p != nil && cfg.Lint.Enabled {
		engine := lint.NewEngine()
		for _, id := range cfg.Lint.Disabled {
			engine.Disable(id)
		}
		for _, loaded := range l.Protos() {
			ds.Merge(engine.Run(loaded))
		}
	}
	if !cfg.Lint.Enabled {
		trimmed := &diag.List{}
		trimmed.Append(ds.Errors()...)
		ds = trimmed
	}

	ds.Render(os.Stderr)
	return p, l, p != nil && !ds.HasErrors()
}

func newCheckCmd() *cobra.Command {
	var watchMode bool
	cmd := &cobra.Command{
		Use:   "check <file.bitproto>",
		Short: "Parse and type-check a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if !watchMode {
				if _, _, ok := compile(cfg, args[0]); !ok {
					return fmt.Errorf("%s: check failed", args[0])
				}
				fmt.Println("ok")
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			w := watch.New(logger, func() []string {
				_, l, ok := compile(cfg, args[0])
				if ok {
					fmt.Println("ok")
				}
				files := l.Files()
				if len(files) == 0 {
					files = []string{args[0]}
				}
				return files
			})
			logger.Info("watching for changes", "file", args[0])
			err = w.Watch(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Recheck on file changes")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <file.bitproto>",
		Short: "Print the resolved layout of every message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			p, _, ok := compile(cfg, args[0])
			if !ok {
				return fmt.Errorf("%s: check failed", args[0])
			}
			describe(p)
			return nil
		},
	}
}

func describe(p *ir.Proto) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "proto %s\n", p.Name)
	for _, c := range p.Constants {
		fmt.Fprintf(w, "const %s\t= %s\n", c.Name, c.Value())
	}
	for _, e := range p.Enums {
		describeEnum(w, e)
	}
	for _, m := range p.AllMessages() {
		for _, e := range m.Enums {
			describeEnum(w, e)
		}
		describeMessage(w, m)
	}
}

func describeEnum(w *tabwriter.Writer, e *ir.Enum) {
	fmt.Fprintf(w, "\nenum %s : %s\n", e, e.Backing)
	for _, m := range e.Members {
		fmt.Fprintf(w, "  %s\t= %d\n", m.Name, m.Value)
	}
}

func describeMessage(w *tabwriter.Writer, m *ir.Message) {
	ext := ""
	if m.Extensible {
		ext = "'"
	}
	fmt.Fprintf(w, "\nmessage %s%s\t%d bits\t%d bytes\n", m, ext, m.Nbits(), m.ByteSize())
	offset := 0
	if m.Extensible {
		offset = 16
	}
	for _, f := range m.Fields {
		fmt.Fprintf(w, "  %d\t%s\t%s\tbit %d\twidth %d\n",
			f.Number, f.Name, f.Type, offset, f.Type.Nbits())
		offset += f.Type.Nbits()
	}
}

func newDecodeCmd() *cobra.Command {
	var (
		schemaPath string
		msgName    string
	)
	cmd := &cobra.Command{
		Use:   "decode -s <file.bitproto> -m <Message> <data.bin>",
		Short: "Decode a binary buffer against a schema and print JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			p, _, ok := compile(cfg, schemaPath)
			if !ok {
				return fmt.Errorf("%s: check failed", schemaPath)
			}
			m := p.Message(msgName)
			if m == nil {
				return fmt.Errorf("no message %q in %s", msgName, schemaPath)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(data) < m.ByteSize() {
				return fmt.Errorf("buffer is %d bytes, message %s needs %d", len(data), m, m.ByteSize())
			}

			d, err := descriptor.NewBuilder().Message(m)
			if err != nil {
				return err
			}
			v := codec.NewValue(d)
			v.Decode(data)

			// Canonical JSON is at most a few bytes per wire bit; sizing
			// by field count and 21 digits per scalar is a safe ceiling.
			out := make([]byte, jsonCeiling(d))
			n, err := codec.FormatJSON(v, out)
			if err != nil {
				return err
			}
			os.Stdout.Write(out[:n])
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "Schema file (required)")
	cmd.Flags().StringVarP(&msgName, "message", "m", "", "Message name, dotted for nested (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

// jsonCeiling over-approximates the canonical JSON size of one value.
func jsonCeiling(d *codec.Descriptor) int {
	switch d.Kind {
	case codec.KindAlias:
		return jsonCeiling(d.Target)
	case codec.KindArray:
		return 2 + d.Cap*(jsonCeiling(d.Elem)+1)
	case codec.KindMessage:
		n := 2
		for i := range d.Fields {
			f := &d.Fields[i]
			n += len(f.Name) + 4 + jsonCeiling(f.Type)
		}
		return n
	default:
		return 21
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bitproto %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}
