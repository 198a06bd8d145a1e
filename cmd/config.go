package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configValidate bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configValidate {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return eris.Wrap(err, "encode config")
		}
		return enc.Close()
	},
}

func init() {
	configCmd.Flags().BoolVar(&configValidate, "validate", false, "fail if the configuration is invalid")
	rootCmd.AddCommand(configCmd)
}
