package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix prefixes environment variables that set flags.
const envPrefix = "ELECTROLYTE"

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults. It then reads from the command line, the
// environment, and a config file (if specified), and applies the configuration
// in that priority order. Each flag holds a pointer to where its value is
// stored, so setAllConfig modifies the options structs directly.
//
// Environment variables are the flag names upper-cased with dashes replaced
// by underscores, prefixed with ELECTROLYTE_ (ELECTROLYTE_PUSH_GATEWAY).
// The config file type follows its extension; keys that are not flags are
// rejected.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validKeys := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validKeys[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %w", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validKeys[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			// Set on the command line, the highest priority.
			return
		}
		switch f.Value.Type() {
		case "stringSlice", "stringArray":
			// v.GetString is empty for a list read from a config file, and
			// Set appends, so each element is set on its own.
			for _, item := range v.GetStringSlice(f.Name) {
				if flagErr = f.Value.Set(item); flagErr != nil {
					return
				}
			}
		default:
			flagErr = f.Value.Set(v.GetString(f.Name))
		}
	})
	return flagErr
}

// configureLogging installs a text slog handler on w: Info by default,
// Debug when verbose.
func configureLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
