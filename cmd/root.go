// Package cmd wires the experiment pipelines into a cobra CLI.
package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the visionlab command tree.
func NewRootCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "visionlab",
		Short: "Image classification and GAN training experiments",
		Long: `visionlab runs two experiment pipelines:

a transfer-learning binary image classifier built on a pretrained
convolutional backbone, and a GAN trained on a face-image dataset.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			if lvl, err := log.ParseLevel(logLevel); err == nil {
				log.SetLevel(lvl)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newTrainClassifierCmd())
	cmd.AddCommand(newPredictCmd())
	cmd.AddCommand(newTrainGANCmd())
	cmd.AddCommand(newSampleCmd())

	return cmd
}
