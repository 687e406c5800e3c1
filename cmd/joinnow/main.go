// cmd/joinnow/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"joinnow/internal/application/relay"
	"joinnow/internal/common/config"
)

// Version set via ldflags during build
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "joinnow",
		Short:         "Internship application wizard",
		Long:          "joinnow serves the three-step NETWORTHWARS internship application and relays finished applications to FormSubmit.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: configs/config.yaml)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newPayloadCmd(opts))
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFromFile(opts.configPath)
	}
	return config.Load()
}

func relayConfig(cfg *config.Config) *relay.Config {
	return &relay.Config{
		URL:            cfg.Relay.URL,
		Timeout:        config.GetDuration(cfg.Relay.Timeout),
		SubjectPrefix:  cfg.Relay.SubjectPrefix,
		Template:       cfg.Relay.Template,
		DisableCaptcha: cfg.Relay.DisableCaptcha,
	}
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
