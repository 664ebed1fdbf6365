// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration show/get/set commands.
package cli

import (
	"fmt"

	"github.com/jeranaias/comply-tui/internal/config"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

// HandleConfig handles the "config" command and its subcommands.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "show", "":
		return configShow(args)
	case "get":
		return configGet(args)
	case "set":
		return configSet(args)
	case "path":
		return configPath(args)
	case "keys":
		return configKeys(args)
	default:
		return NewUsageError("unknown config subcommand: "+args.Subcommand,
			"comply config [show|get|set|path|keys]")
	}
}

// configShow prints every key and its current value.
func configShow(args Args) error {
	cfg := config.Global()

	if args.JSON {
		printJSON(cfg)
		return nil
	}

	fmt.Println(HeadingStyle.Render("Configuration"))
	for _, key := range config.GetAllKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("  %-28s %v\n", key, value)
	}
	return nil
}

// configGet prints one value.
func configGet(args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("key", "comply config get ui.theme")
	}

	value, err := config.Global().Get(args.ConfigKey)
	if err != nil {
		return err
	}

	if args.JSON {
		printJSON(map[string]any{args.ConfigKey: value})
		return nil
	}
	fmt.Printf("%v\n", value)
	return nil
}

// configSet updates one value, validates the result, and persists it.
func configSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("key and value", "comply config set ui.theme light")
	}

	cfg := config.Global().Clone()
	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return WrapError(err, "invalid configuration")
	}
	if err := config.Save(cfg); err != nil {
		return WrapError(err, "failed to save config")
	}
	config.SetGlobal(cfg)

	if !args.Quiet {
		fmt.Println(styles.RenderSuccess(args.ConfigKey + " = " + args.ConfigVal))
	}
	return nil
}

// configPath prints the config file location.
func configPath(args Args) error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// configKeys lists the settable keys.
func configKeys(args Args) error {
	keys := config.GetAllKeys()
	if args.JSON {
		printJSON(keys)
		return nil
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}
