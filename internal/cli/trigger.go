package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/errors"
	"github.com/rileyhilliard/statuspage/internal/store"
	"github.com/rileyhilliard/statuspage/internal/ui"
	"github.com/rileyhilliard/statuspage/internal/util"
)

// pickServer prompts for a trigger target. Tests replace it.
var pickServer = ui.PickServer

// triggerOutput is the --json payload of the trigger command.
type triggerOutput struct {
	Check   string   `json:"check"`
	Name    string   `json:"name"`
	Servers []string `json:"servers"`
}

func triggerCommand(ctx context.Context, out io.Writer, checkKey, serverFlag string, all bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.fetch(ctx)
	if err != nil {
		return err
	}
	check, ok := findCheck(snap, checkKey)
	if !ok {
		return unknownCheck(snap, checkKey, "Run 'statuspage checks --json' to list check keys")
	}

	ranOn := a.store.Servers(check)
	if !all {
		server, err := triggerTarget(snap, ranOn, serverFlag, check.Name)
		if err != nil {
			return err
		}
		if server == ui.AllServers {
			all = true
		} else {
			if err := a.store.TriggerOne(ctx, server, check.Key); err != nil {
				return triggerError(err, a, cfg.Server)
			}
			return reportTrigger(out, check, []string{server})
		}
	}

	if len(ranOn) == 0 {
		return errors.New(errors.ErrInput,
			fmt.Sprintf("%s has never run, so there's no server to trigger it on", check.Name),
			"Pick a server explicitly with --server")
	}
	if err := a.store.TriggerOnAllServers(ctx, check); err != nil {
		return triggerError(err, a, cfg.Server)
	}
	return reportTrigger(out, check, ranOn)
}

// triggerTarget resolves --server, prompting on a terminal when it's empty.
func triggerTarget(snap api.Snapshot, ranOn []string, serverFlag, checkName string) (string, error) {
	if serverFlag != "" {
		return resolveServer(snap.Servers, serverFlag)
	}
	if machineMode || !isTerminal(os.Stdin) {
		return "", errors.New(errors.ErrInput,
			"No server given",
			"Pass --server <name> or --all")
	}
	return pickServer("Trigger "+checkName+" on", aggregate.OrderedServers(ranOn), true)
}

func findCheck(snap api.Snapshot, key string) (api.Check, bool) {
	for _, c := range snap.Checks {
		if c.Key == key {
			return c, true
		}
	}
	return api.Check{}, false
}

// unknownCheck reports a missing check key, suggesting near misses first.
func unknownCheck(snap api.Snapshot, key, hint string) error {
	keys := make([]string, len(snap.Checks))
	for i, c := range snap.Checks {
		keys[i] = c.Key
	}
	if similar := util.SuggestSimilar(key, keys, 3); len(similar) > 0 {
		hint = "Did you mean: " + util.JoinOrNone(similar) + "?"
	}
	return errors.New(errors.ErrInput, fmt.Sprintf("No check with key '%s'", key), hint)
}

// triggerError reports a rejected trigger with the store's banner text, and
// a failed refetch afterwards as a backend error.
func triggerError(err error, a *app, server string) error {
	var trigErr *store.TriggerError
	if stderrors.As(err, &trigErr) {
		return errors.WrapWithCode(err, errors.ErrTrigger, a.store.Error(),
			"Check the backend logs; the check may not exist on that server anymore")
	}
	return backendError(err, a.store.Error(), server)
}

func reportTrigger(out io.Writer, check api.Check, servers []string) error {
	if machineMode {
		return WriteJSONSuccess(out, triggerOutput{Check: check.Key, Name: check.Name, Servers: servers})
	}
	for _, s := range servers {
		fmt.Fprintf(out, "%s Triggered %s on %s\n",
			ui.StatusStyle(true).Render(ui.SymbolSuccess), check.Name, aggregate.ServerLabel(s))
	}
	return nil
}
