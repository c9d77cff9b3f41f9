/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theirish81/ollamakit"
)

const envPrefix = "OLLAMAKIT"

// flagKeys maps the persistent flags to their configuration keys.
var flagKeys = map[string]string{
	"host":          "host",
	"model":         "model",
	"api-key":       "api_key",
	"timeout":       "timeout",
	"auto-install":  "auto_install",
	"system-prompt": "system_prompt",
}

// loadConfig merges, from lowest to highest priority, the defaults, the configuration file, the OLLAMAKIT_*
// environment variables and the command line flags.
func loadConfig(cmd *cobra.Command) (ollamakit.Config, error) {
	v := viper.New()
	for key, value := range ollamakit.DefaultConfig().AsMap() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return ollamakit.Config{}, err
		}
	} else {
		v.SetConfigName("ollamakit")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ollamakit")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return ollamakit.Config{}, err
			}
		}
	}

	flags := cmd.Flags()
	for name, key := range flagKeys {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return ollamakit.Config{}, err
			}
		}
	}
	if noHistory, err := flags.GetBool("no-history"); err == nil && noHistory {
		v.Set("keep_history", false)
	}
	return ollamakit.ConfigFromMap(v.AllSettings())
}
