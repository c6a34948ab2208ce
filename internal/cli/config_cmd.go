package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/statuspage/internal/config"
	"github.com/rileyhilliard/statuspage/internal/errors"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

// configOutput is the --json payload of the config commands.
type configOutput struct {
	Path   string         `json:"path,omitempty"`
	Config *config.Config `json:"config,omitempty"`
	Key    string         `json:"key,omitempty"`
	Value  string         `json:"value,omitempty"`
}

func configInitCommand(out io.Writer, path string, force bool) error {
	if path == "" {
		path = config.ConfigFileName
	}
	path = config.ExpandTilde(path)

	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			"Config already exists at "+path,
			"Use --force to overwrite it, or 'statuspage config set' to change one key")
	}

	// Defaults plus environment and flags, but never the file being replaced.
	cfg, err := config.LoadWith(settings, "")
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(path, cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+path, "Check directory permissions")
	}

	if machineMode {
		return WriteJSONSuccess(out, configOutput{Path: path, Config: cfg})
	}
	fmt.Fprintf(out, "%s Wrote %s\n", ui.StatusStyle(true).Render(ui.SymbolSuccess), path)
	return nil
}

func configShowCommand(out io.Writer) error {
	cfg, path, err := config.LoadOrDefault(settings, cfgFile)
	if err != nil {
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, configOutput{Path: path, Config: cfg})
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't render the config", "")
	}
	source := "defaults and environment (no config file)"
	if path != "" {
		source = path
	}
	fmt.Fprintln(out, ui.MutedStyle().Render("# "+source))
	fmt.Fprint(out, string(data))
	return nil
}

func configSetCommand(out io.Writer, key, value string) error {
	path, err := config.Find(cfgFile)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New(errors.ErrConfig,
			"Config file not found",
			"Run 'statuspage config init' first")
	}

	original, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't read "+path, "Check file permissions")
	}
	if err := config.SetValue(path, key, value); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Couldn't set %s", key), "Keys are dotted paths like bars.max_height")
	}
	// The edited file must still load and validate, otherwise it's restored.
	cfg, err := config.Load(path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		_ = os.WriteFile(path, original, 0o644)
		return err
	}

	if machineMode {
		return WriteJSONSuccess(out, configOutput{Path: path, Key: key, Value: value})
	}
	fmt.Fprintf(out, "%s Set %s = %s in %s\n", ui.StatusStyle(true).Render(ui.SymbolSuccess), key, value, path)
	return nil
}
