package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"joinnow/internal/application/relay"
	"joinnow/internal/common/errors"
	"joinnow/internal/common/logger"
	"joinnow/internal/models"
)

type payloadOptions struct {
	send   bool
	asJSON bool
}

func newPayloadCmd(root *rootOptions) *cobra.Command {
	opts := &payloadOptions{}

	cmd := &cobra.Command{
		Use:   "payload <file.yaml>",
		Short: "Print the relay fields for an application form file",
		Long: `Load an application form from YAML and print the fields that would be
posted to the relay. With --send the form is submitted once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := loadForm(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(root)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			rc := relayConfig(cfg)

			p, err := relay.BuildPayload(form, rc.Metadata())
			if err != nil {
				return describe(err)
			}
			if res := relay.ValidatePayload(form.Role, p); !res.Valid {
				return fmt.Errorf("payload invalid: %s", strings.Join(res.GetErrorMessages(), "; "))
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(p.Fields()); err != nil {
					return err
				}
			} else {
				for _, f := range p.Fields() {
					fmt.Fprintf(out, "%s: %s\n", f.Key, f.Value)
				}
			}

			if !opts.send {
				return nil
			}

			client, err := relay.NewClient(relay.ClientOptions{
				Config: rc,
				Logger: logger.NewStructured(cfg.Logging.Level, "console"),
			})
			if err != nil {
				return err
			}
			if err := client.Submit(cmd.Context(), form); err != nil {
				return describe(err)
			}
			fmt.Fprintf(out, "submitted to %s\n", rc.URL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.send, "send", false, "Submit the form to the relay once")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the fields as JSON")
	return cmd
}

// loadForm reads an application form from a YAML file.
func loadForm(path string) (models.ApplicationForm, error) {
	var form models.ApplicationForm

	data, err := os.ReadFile(path)
	if err != nil {
		return form, fmt.Errorf("failed to read form file: %w", err)
	}
	if err := yaml.Unmarshal(data, &form); err != nil {
		return form, fmt.Errorf("failed to parse form file %s: %w", path, err)
	}
	return form, nil
}

func describe(err error) error {
	if stdErr, ok := errors.AsStandardError(err); ok {
		return fmt.Errorf("%s: %s (%s)", stdErr.Code, stdErr.Message, stdErr.Details)
	}
	return err
}
