package cmd

import (
	"fmt"
	"os"

	"transcode-worker/infrastructure/config"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "transcode-worker",
	Short: "Extract audio from uploaded media objects",
	Long: `transcode-worker consumes "object created" notifications from a queue,
extracts the audio track of each uploaded object with ffmpeg and stores the
result next to it:

  - Receive a notification from SQS, Redis or Pub/Sub
  - Download the object from S3, MinIO or Cloud Storage
  - Run ffmpeg -i <in> -q:a 0 -map a <out>.mp3
  - Upload to audio/<name>.mp3 and delete the source object

Example:
  QUEUE_NAME=uploads transcode-worker run
  transcode-worker watch --config config/config.yaml`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./"+config.DefaultPath+")")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	cfg, cfgErr = config.LoadWithEnv(cfgFile)
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}
