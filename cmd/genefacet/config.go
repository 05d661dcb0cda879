package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// knownKeys are the config keys read by genefacet.
var knownKeys = []string{
	keyDataPath,
	keyDataSheet,
	keyDataTable,
	keyDataFormat,
	keySchemaVersion,
	keySchemaFile,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage genefacet configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.genefacet.yaml.",
		Example: `  genefacet config                                  # show all config
  genefacet config set data.path ~/genelist.csv     # default gene table
  genefacet config set schema.version babyseq2      # default schema
  genefacet config get data.path                    # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// fileSettings returns the values stored in the config file, ignoring flag
// defaults bound to the same keys.
func fileSettings() map[string]any {
	settings := make(map[string]any)
	for _, key := range knownKeys {
		if viper.InConfig(key) {
			settings[key] = viper.Get(key)
		}
	}
	return settings
}

func runConfigShow(w io.Writer) error {
	settings := fileSettings()
	if len(settings) == 0 {
		fmt.Fprintln(w, "# No configuration set. Config file: ~/.genefacet.yaml")
		return nil
	}

	out, err := yaml.Marshal(nest(settings))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

// nest turns dotted keys into nested maps for display.
func nest(flat map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for k, v := range flat {
		section, name, _ := strings.Cut(k, ".")
		if out[section] == nil {
			out[section] = make(map[string]any)
		}
		out[section][name] = v
	}
	return out
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

func runConfigSet(w io.Writer, key, value string) error {
	if !isKnownKey(key) {
		return usageErrorf("unknown config key %q (available: %v)", key, knownKeys)
	}

	// Start from the file contents so bound flag defaults are not persisted.
	file := viper.New()
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".genefacet.yaml")
	}
	file.SetConfigFile(cfgFile)
	file.SetConfigType("yaml")
	if _, err := os.Stat(cfgFile); err == nil {
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	file.Set(key, value)

	if err := file.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	viper.Set(key, value)

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	if !viper.IsSet(key) || viper.GetString(key) == "" {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, viper.Get(key))
	return nil
}
