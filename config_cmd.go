package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/livechat-tts/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the livechat-tts config file",
	Long:    paragraph(fmt.Sprintf("\n%s the livechat-tts config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("livechat-tts config\nlivechat-tts config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// An invalid config must still be editable, so skip loading it.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if err := config.EnsureFile(path); err != nil {
			return err //nolint:wrapcheck
		}

		c, err := editor.Cmd("livechat-tts", path)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", path)
		return nil
	},
}

// configPath returns --config, the config file found in the search path,
// or where a new one should be created.
func configPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	dirs, err := config.SearchDirs()
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	for _, d := range dirs {
		for _, ext := range []string{".yml", ".yaml"} {
			p := filepath.Join(d, config.AppName+ext)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}
	return filepath.Join(dirs[0], config.AppName+".yml"), nil
}
