package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newInvokeCmd() *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "invoke <handler>",
		Short: "Run a handler on a JSON event and print its result",
		Long: `Reads the event from --event (a file, or - for stdin) and prints the
handler's JSON result to stdout. With --server the handler runs on a
remote server; otherwise it runs in-process against the configured
draft store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			event, err := readEvent(cmd.InOrStdin(), eventPath)
			if err != nil {
				return err
			}

			var result any
			if flagServer != "" {
				raw, err := NewClient(flagServer, logger).Invoke(name, event)
				if err != nil {
					return fmt.Errorf("invoke %s: %w", name, err)
				}
				result = raw
			} else {
				a, err := newApp(cmd.Context())
				if err != nil {
					return err
				}
				defer a.Close()
				requestID := "cli_" + uuid.New().String()[:8]
				result, err = a.registry.Invoke(cmd.Context(), name, requestID, event)
				if err != nil {
					return fmt.Errorf("invoke %s: %w", name, err)
				}
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "-", "Event JSON file, or - for stdin")

	return cmd
}

func readEvent(stdin io.Reader, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return bytes.TrimSpace(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
