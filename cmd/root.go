package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/performance/config"
	"github.com/RyanBlaney/sonido-coach/transcode"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SONIDO_COACH"

var (
	configFile   string
	logLevel     string
	logFormat    string
	outputFormat string
	dbPath       string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonido-coach",
	Short: "Practice feedback by comparing a performance with a reference",
	Long: `Analyse recordings for pitch, tempo, timbre and loudness, and grade a
practice take against a reference performance.

Commands:
- analyze: extract features from one file
- compare: score a recording against a reference
- history: list saved comparison reports
- config:  print the effective configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return err
		}
		return setupLogging(viper.GetString("log-level"), viper.GetString("log-format"), os.Stderr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/sonido-coach/sonido-coach.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log record format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(),
		"history database path")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sonido-coach"))
		}
		viper.AddConfigPath("./configs")
		viper.SetConfigName("sonido-coach")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// initializeConfig binds flags after parsing and reads the config file
func initializeConfig(cmd *cobra.Command) error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		// config file and environment fill flags the user did not set
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}
		if err := v.BindEnv(f.Name, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// setupLogging installs the global logger writing records in format to out
func setupLogging(level, format string, out io.Writer) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}

	var logger *logging.DefaultLogger
	switch strings.ToLower(format) {
	case "", "text":
		logger = logging.NewLogger(out)
	case "json":
		logger = logging.NewJSONLogger(out)
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", format)
	}
	logger.SetLevel(lvl)
	logging.SetGlobalLogger(logger)
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sonido-coach.db"
	}
	return filepath.Join(home, ".local", "share", "sonido-coach", "history.db")
}

// appConfig is the complete configuration of a CLI run
type appConfig struct {
	config.Config `yaml:",inline" mapstructure:",squash"`
	Decoder       transcode.DecoderConfig `json:"decoder" yaml:"decoder" mapstructure:"decoder"`
}

// loadAppConfig decodes the config file over the defaults
func loadAppConfig(v *viper.Viper) (*appConfig, error) {
	cfg := &appConfig{
		Config:  *config.Default(),
		Decoder: *transcode.DefaultDecoderConfig(),
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := errors.Join(cfg.Validate(), transcode.NewDecoder(&cfg.Decoder).ValidateConfig()); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
