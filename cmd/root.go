package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "interview-cli"

	defaultStateDir = ".interview-cli"
)

type Config struct {
	API *struct {
		BaseURL   string `mapstructure:"base-url"`
		TokenFile string `mapstructure:"token-file"`
		UserAgent string `mapstructure:"user-agent"`
	} `mapstructure:"api"`
	StateDir string `mapstructure:"state-dir"`
	Retry    *struct {
		MaxAttempts  int           `mapstructure:"max-attempts"`
		InitialDelay time.Duration `mapstructure:"initial-delay"`
		MaxDelay     time.Duration `mapstructure:"max-delay"`
	} `mapstructure:"retry"`
	WebSocket *struct {
		Enabled      bool          `mapstructure:"enabled"`
		URL          string        `mapstructure:"url"`
		PingInterval time.Duration `mapstructure:"ping-interval"`
	} `mapstructure:"websocket"`
	Audio *struct {
		SampleRate uint32 `mapstructure:"sample-rate"`
		Channels   uint32 `mapstructure:"channels"`
	} `mapstructure:"audio"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-cli is a terminal client for taking automated hireloop interviews",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("api.base-url", "INTERVIEW_API_URL"); err != nil {
		log.Fatalf("binding INTERVIEW_API_URL environment variable: %v", err)
	}
	if err := viper.BindEnv("api.token-file", "INTERVIEW_TOKEN_FILE"); err != nil {
		log.Fatalf("binding INTERVIEW_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("websocket.enabled", "INTERVIEW_WS_ENABLED"); err != nil {
		log.Fatalf("binding INTERVIEW_WS_ENABLED environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-cli.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("state-dir", defaultStateDir)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The config file is optional; env variables and defaults cover the rest.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
