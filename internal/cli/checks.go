package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/errors"
	"github.com/rileyhilliard/statuspage/internal/format"
	"github.com/rileyhilliard/statuspage/internal/ui"
	"github.com/rileyhilliard/statuspage/internal/util"
)

// Check row statuses.
const (
	rowPass   = "pass"
	rowFail   = "fail"
	rowNoData = "none"
)

// checkRow is one group in the checks output.
type checkRow struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Checks    []string `json:"checks"`
	Status    string   `json:"status"`
	LastRun   string   `json:"lastRun,omitempty"`
	Duration  int64    `json:"durationMs,omitempty"`
	Message   string   `json:"message,omitempty"`
	Latency   string   `json:"latency,omitempty"`
	Uptime    string   `json:"uptime,omitempty"`
}

// checksOutput is the --json payload of the checks command.
type checksOutput struct {
	Server string     `json:"server"`
	Groups []checkRow `json:"groups"`
}

// serverRow is one entry of the servers output.
type serverRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func checksCommand(ctx context.Context, out io.Writer, serverFlag string) error {
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
	server, err := resolveServer(snap.Servers, serverFlag)
	if err != nil {
		return err
	}

	rows := buildCheckRows(snap, server, time.Now())
	if machineMode {
		return WriteJSONSuccess(out, checksOutput{Server: server, Groups: rows})
	}
	renderChecks(out, rows, server)
	return nil
}

func serversCommand(ctx context.Context, out io.Writer) error {
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

	options := aggregate.OrderedServers(snap.Servers)
	rows := make([]serverRow, len(options))
	for i, o := range options {
		rows[i] = serverRow{Label: o.Label, Value: o.Value}
	}
	if machineMode {
		return WriteJSONSuccess(out, rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(out, ui.MutedStyle().Render("No servers reported by the backend"))
		return nil
	}
	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.Label, r.Value}
	}
	fmt.Fprintln(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "LABEL", Width: 12},
		{Title: "SERVER", Width: 24},
	}, table))
	return nil
}

// resolveServer matches flag against the snapshot servers by full name or
// label. An empty flag picks the first server of the picklist, or "" when
// there are none.
func resolveServer(servers []string, flag string) (string, error) {
	if flag == "" {
		values := aggregate.ServerValues(servers)
		if len(values) == 0 {
			return "", nil
		}
		return values[0], nil
	}

	for _, s := range servers {
		if s == flag {
			return s, nil
		}
	}
	for _, o := range aggregate.OrderedServers(servers) {
		if o.Label == flag {
			return o.Value, nil
		}
	}

	labels := make([]string, 0, len(servers))
	for _, o := range aggregate.OrderedServers(servers) {
		labels = append(labels, o.Label)
	}
	suggestion := "Known servers: " + util.JoinOrDefault(labels, "none reported yet")
	if similar := util.SuggestSimilar(flag, labels, 3); len(similar) > 0 {
		suggestion = "Did you mean: " + util.JoinOrNone(similar) + "?"
	}
	return "", errors.New(errors.ErrInput,
		fmt.Sprintf("Server '%s' isn't in the snapshot", flag), suggestion)
}

// buildCheckRows flattens the grouped snapshot for server.
func buildCheckRows(snap api.Snapshot, server string, now time.Time) []checkRow {
	var rows []checkRow
	for _, ns := range aggregate.GroupChecks(snap.Checks) {
		for _, g := range ns.Groups {
			row := checkRow{
				Namespace: g.Namespace,
				Name:      g.Name,
				Type:      g.Type,
				Status:    rowNoData,
			}
			for _, c := range g.Checks {
				row.Checks = append(row.Checks, c.Key)
			}

			if entries := aggregate.StatusesFor(g.Checks, server); len(entries) > 0 {
				latest := entries[0]
				row.Status = rowFail
				if aggregate.GroupHealthy(g, server) {
					row.Status = rowPass
				}
				row.LastRun = format.StatusAge(latest.Status.Time, now)
				row.Duration = latest.Status.Duration
				row.Message = latest.Status.Message
			}
			if !g.Merged() {
				if h, ok := g.Checks[0].Health[server]; ok {
					row.Latency = h.Latency
					row.Uptime = h.Uptime
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func renderChecks(out io.Writer, rows []checkRow, server string) {
	if len(rows) == 0 {
		fmt.Fprintln(out, ui.MutedStyle().Render("No checks reported by the backend"))
		return
	}

	title := fmt.Sprintf("%d %s", len(rows), util.Pluralize(len(rows), "group", "groups"))
	if server != "" {
		title += " on " + aggregate.ServerLabel(server)
	}
	fmt.Fprintln(out, title)

	table := make([][]string, len(rows))
	for i, r := range rows {
		status := ui.SymbolPending + " -"
		if r.Status != rowNoData {
			pass := r.Status == rowPass
			status = ui.StatusSymbol(pass) + " " + r.Status
		}
		name := r.Name
		if len(r.Checks) > 1 {
			name += fmt.Sprintf(" (%d)", len(r.Checks))
		}
		ns := r.Namespace
		if ns == "" {
			ns = "-"
		}
		table[i] = []string{
			ns,
			format.Truncate(name, 40),
			r.Type,
			status,
			orDash(r.LastRun),
			orDash(r.Latency),
			orDash(r.Uptime),
		}
	}

	fmt.Fprintln(out, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "NAMESPACE", Width: 10},
		{Title: "CHECK", Width: 20},
		{Title: "TYPE", Width: 6},
		{Title: "STATUS", Width: 8},
		{Title: "LAST RUN", Width: 10},
		{Title: "LATENCY", Width: 8},
		{Title: "UPTIME", Width: 8},
	}, table))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
