package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/proctor-go/cmd/audio"
	"github.com/tphakala/proctor-go/cmd/config"
	"github.com/tphakala/proctor-go/cmd/frame"
	"github.com/tphakala/proctor-go/cmd/serve"
	"github.com/tphakala/proctor-go/cmd/video"
	"github.com/tphakala/proctor-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "proctor",
		Short:        "Proctoring telemetry analyzer",
		Long:         "Analyzes webcam frames and microphone audio for proctoring signals.",
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		frame.Command(settings),
		audio.Command(settings),
		video.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flags win over file and environment values
		if err := viper.Unmarshal(settings); err != nil {
			return fmt.Errorf("error applying flags: %w", err)
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Main.Debug, "debug", "d", viper.GetBool("main.debug"), "Enable debug output")
	flags.StringVar(&settings.Vision.Cascade.Path, "cascade", viper.GetString("vision.cascade.path"), "Path to the Haar cascade XML")
	flags.StringVar(&settings.Vision.FaceMesh.ModelPath, "facemesh", viper.GetString("vision.facemesh.modelpath"), "Path to the face landmark TFLite model")
	flags.IntVar(&settings.Vision.Detectors, "detectors", viper.GetInt("vision.detectors"), "Detector pool size, 0 for automatic")

	for key, name := range map[string]string{
		"main.debug":                "debug",
		"vision.cascade.path":       "cascade",
		"vision.facemesh.modelpath": "facemesh",
		"vision.detectors":          "detectors",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}

	return nil
}
