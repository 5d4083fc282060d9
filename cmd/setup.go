package cmd

import (
	"fmt"
	"os"
	"time"

	"transcode-worker/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through choosing the queue and storage backends,
their connection settings and the polling behaviour.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, os.Stdout)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, output OutputWriter) error {
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, "Welcome to transcode-worker setup!")
	fmt.Fprintln(output)

	cfg := config.Default()

	if err := promptQueue(prompter, cfg); err != nil {
		return err
	}
	if err := promptStorage(prompter, cfg); err != nil {
		return err
	}
	if err := promptWorker(prompter, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Configuration saved to %s\n", configPath)
	return nil
}

func promptQueue(prompter Prompter, cfg *config.Config) error {
	backend, err := prompter.Select("Which queue delivers upload notifications?",
		[]string{config.BackendSQS, config.BackendRedis, config.BackendPubSub}, config.BackendSQS)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Queue.Backend = backend

	name, err := prompter.Input("Queue name (SQS queue, Redis list or Pub/Sub subscription)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if name == "" {
		return fmt.Errorf("queue name is required")
	}
	cfg.Queue.Name = name

	switch backend {
	case config.BackendSQS:
		region, err := prompter.Input("AWS region?", "us-east-1")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Queue.Region = region
	case config.BackendRedis:
		addr, err := prompter.Input("Redis address?", "localhost:6379")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Queue.Redis.Addr = addr
	case config.BackendPubSub:
		project, err := prompter.Input("Google Cloud project ID?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if project == "" {
			return fmt.Errorf("project ID is required")
		}
		cfg.Queue.PubSub.Project = project

		creds, err := prompter.Input("Path to Google credentials file (blank for default credentials)?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Queue.PubSub.CredentialsFile = creds
	}

	return nil
}

func promptStorage(prompter Prompter, cfg *config.Config) error {
	backend, err := prompter.Select("Where are uploads stored?",
		[]string{config.BackendS3, config.BackendMinio, config.BackendGCS}, config.BackendS3)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Storage.Backend = backend

	switch backend {
	case config.BackendS3:
		cfg.Storage.Region = cfg.Queue.Region
	case config.BackendMinio:
		endpoint, err := prompter.Input("MinIO endpoint (host:port)?", "localhost:9000")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if endpoint == "" {
			return fmt.Errorf("endpoint is required")
		}
		cfg.Storage.Endpoint = endpoint

		accessKey, err := prompter.Input("Access key?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Storage.AccessKey = accessKey

		secretKey, err := prompter.Input("Secret key?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Storage.SecretKey = secretKey

		useSSL, err := prompter.Confirm("Use TLS?", true)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Storage.UseSSL = useSSL
	case config.BackendGCS:
		creds, err := prompter.Input("Path to Google credentials file (blank for default credentials)?", cfg.Queue.PubSub.CredentialsFile)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Storage.GCS.CredentialsFile = creds
	}

	prefix, err := prompter.Input("Destination prefix for extracted audio?", cfg.Storage.DestinationPrefix)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if prefix != "" {
		cfg.Storage.DestinationPrefix = prefix
	}

	return nil
}

func promptWorker(prompter Prompter, cfg *config.Config) error {
	interval, err := prompter.Input("Poll interval for watch mode?", cfg.Queue.PollInterval.String())
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid poll interval %q: %w", interval, err)
		}
		cfg.Queue.PollInterval = d
	}

	stop, err := prompter.Confirm("Stop watching at the first failed message?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Worker.StopOnError = stop

	listen, err := prompter.Input("Metrics listen address (blank to disable)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Metrics.Listen = listen

	return nil
}
