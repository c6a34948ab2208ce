package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/dashboard"
)

// graphOptions are the graph command flags.
type graphOptions struct {
	CheckKey   string
	CheckType  string
	CanaryName string
	Timeframe  string
}

// graphOutput is the --json payload of the graph command.
type graphOutput struct {
	Check     string             `json:"check"`
	Timeframe string             `json:"timeframe"`
	Seconds   int64              `json:"seconds"`
	Graph     *api.GraphResponse `json:"graph"`
}

func graphCommand(ctx context.Context, out io.Writer, opts graphOptions) error {
	tf, err := ParseTimeframe(opts.Timeframe)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.CheckType == "" || opts.CanaryName == "" {
		snap, err := a.fetch(ctx)
		if err != nil {
			return err
		}
		check, ok := findCheck(snap, opts.CheckKey)
		if !ok {
			return unknownCheck(snap, opts.CheckKey,
				"Pass --type and --canary to graph a check the snapshot doesn't list")
		}
		if opts.CheckType == "" {
			opts.CheckType = check.Type
		}
		if opts.CanaryName == "" {
			opts.CanaryName = check.CanaryName
		}
	}

	req := api.GraphRequest{
		CheckType:  opts.CheckType,
		CanaryName: opts.CanaryName,
		CheckKey:   opts.CheckKey,
		Timeframe:  int64(tf.Duration.Seconds()),
	}
	a.log.Debug("graph %s (%s/%s) over %s", req.CheckKey, req.CheckType, req.CanaryName, tf.Label)
	resp, err := a.client.PrometheusGraph(ctx, req)
	if err != nil {
		return backendError(err, "Couldn't load the graph: "+api.Detail(err), cfg.Server)
	}

	if machineMode {
		return WriteJSONSuccess(out, graphOutput{
			Check:     req.CheckKey,
			Timeframe: tf.Label,
			Seconds:   req.Timeframe,
			Graph:     resp,
		})
	}
	fmt.Fprintf(out, "%s over %s\n\n", req.CheckKey, tf.Label)
	fmt.Fprintln(out, dashboard.RenderGraph(resp, dashboard.DefaultGraphWidth, tf.Duration))
	return nil
}
