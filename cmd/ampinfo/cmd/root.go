// Package cmd implements the ampinfo command-line commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/ampgo/internal/config"
	"github.com/jmylchreest/ampgo/internal/observability"
	"github.com/jmylchreest/ampgo/internal/registry"
	"github.com/jmylchreest/ampgo/pkg/ioutil"
	"github.com/jmylchreest/ampgo/pkg/uri"

	_ "github.com/jmylchreest/ampgo/pkg/ioutil/filestream"
	_ "github.com/jmylchreest/ampgo/pkg/ioutil/httpstream"

	_ "github.com/jmylchreest/ampgo/internal/codec/opus"
	_ "github.com/jmylchreest/ampgo/internal/codec/pcm"

	_ "github.com/jmylchreest/ampgo/internal/containers/aiff"
	_ "github.com/jmylchreest/ampgo/internal/containers/au"
	_ "github.com/jmylchreest/ampgo/internal/containers/flac"
	_ "github.com/jmylchreest/ampgo/internal/containers/hls"
	_ "github.com/jmylchreest/ampgo/internal/containers/mac"
	_ "github.com/jmylchreest/ampgo/internal/containers/mp3"
	_ "github.com/jmylchreest/ampgo/internal/containers/mpc"
	_ "github.com/jmylchreest/ampgo/internal/containers/ofr"
	_ "github.com/jmylchreest/ampgo/internal/containers/opus"
	_ "github.com/jmylchreest/ampgo/internal/containers/tta"
	_ "github.com/jmylchreest/ampgo/internal/containers/vorbis"
	_ "github.com/jmylchreest/ampgo/internal/containers/wavpack"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ampinfo [path-or-url]",
	Short: "Open an audio stream and print its metadata",
	Long: `ampinfo opens a single local file or HTTP(S) URL, resolves a container
demuxer by file extension, and prints the merged metadata dictionary
along with the decoded stream's channel count, sample rate, and total
frame count.`,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initLogging()
	},
	RunE: runInfo,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ampgo.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	mustBindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/ampgo")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ampgo")
	}

	viper.SetEnvPrefix("AMPGO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func initLogging() error {
	cfg := config.LoggingConfig{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
	}
	logger := observability.NewLogger(cfg).With(slog.String("invocation_id", uuid.New().String()))
	observability.SetDefault(logger)
	return nil
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	target := args[0]

	var u uri.URI
	if strings.Contains(target, "://") {
		var err error
		u, err = uri.Parse(target)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", target, err)
		}
	} else {
		u = uri.FromFilePath(target)
	}

	factory, err := registry.ResolveInput(u.Extension())
	if err != nil {
		return err
	}

	stream, err := ioutil.Open(u, ioutil.ModeIn|ioutil.ModeBinary)
	if err != nil {
		return fmt.Errorf("opening %q: %w", target, err)
	}
	defer stream.Close()

	demux, err := factory(stream, registry.OpenMetadata)
	if err != nil {
		return fmt.Errorf("opening demuxer for %q: %w", target, err)
	}
	defer demux.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "stream: %s\n", target)

	format := demux.Format()
	fmt.Fprintf(out, "channels: %d\n", format.Channels)
	fmt.Fprintf(out, "sample_rate: %d\n", format.SampleRate)
	fmt.Fprintf(out, "total_frames: %d\n", demux.TotalFrames())

	fmt.Fprintln(out, "tags:")
	for _, e := range demux.StreamInfo().Entries() {
		fmt.Fprintf(out, "  %s: %s\n", e.Key.String(), e.Value.String())
	}

	images := demux.Images()
	if len(images) > 0 {
		fmt.Fprintf(out, "images: %d embedded\n", len(images))
	}

	return nil
}
