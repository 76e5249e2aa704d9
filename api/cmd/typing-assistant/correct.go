package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"typing-assistant/api/internal/correction"
)

func newCorrectCmd(opts *rootOptions) *cobra.Command {
	var (
		task   string
		engine string
	)
	cmd := &cobra.Command{
		Use:   "correct [text...]",
		Short: "Run one correction and print the result as JSON",
		Long: `Run one correction against the configured engine and print the
result, including metrics, as JSON on stdout. The text is read from the
arguments, or from stdin when no arguments are given.

Examples:
  typing-assistant correct --task word helo wrld
  echo "thisis badlyspaced" | typing-assistant correct --task spacing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := correction.ParseTaskKind(task)
			if !ok {
				return fmt.Errorf("unknown task %q (word|sentence|command|spacing)", task)
			}

			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(b), "\r\n")
			}

			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			engs, def, err := buildEngines(cfg, logger)
			if err != nil {
				return err
			}
			if engine != "" {
				if def, err = engs.GetEngine(engine); err != nil {
					return err
				}
			}

			req := correction.NewRequestor(def, logger.Named("correction"))
			res := req.Process(cmd.Context(), "cli", correction.Request{Task: kind, Input: text})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if res.Failure != nil {
				return errors.New(res.Failure.Kind.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&task, "task", "t", "word", "word | sentence | command | spacing")
	cmd.Flags().StringVarP(&engine, "engine", "e", "", "engine to use instead of llm.engine")
	return cmd
}
