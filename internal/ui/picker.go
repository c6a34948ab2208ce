package ui

import (
	"github.com/charmbracelet/huh"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/errors"
)

// AllServers is the picker value meaning "trigger everywhere".
const AllServers = "*"

// ServerPickerOptions builds the select options for servers, optionally
// led by an "all servers" entry.
func ServerPickerOptions(servers []aggregate.ServerOption, includeAll bool) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(servers)+1)
	if includeAll {
		options = append(options, huh.NewOption("all servers", AllServers))
	}
	for _, s := range servers {
		label := s.Label
		if label != s.Value {
			label += " - " + s.Value
		}
		options = append(options, huh.NewOption(label, s.Value))
	}
	return options
}

// PickServer prompts for a server. With a single candidate it returns that
// one without prompting.
func PickServer(title string, servers []aggregate.ServerOption, includeAll bool) (string, error) {
	if len(servers) == 0 {
		return "", errors.New(errors.ErrInput, "No servers ran this check",
			"Run 'statuspage servers' to see what the backend knows about.")
	}
	if len(servers) == 1 && !includeAll {
		return servers[0].Value, nil
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(ServerPickerOptions(servers, includeAll)...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrInput,
			"Couldn't get your selection",
			"Try again or pass --server / --all.")
	}
	return selected, nil
}
