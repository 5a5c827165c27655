package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	top   int
}

// NewConsole crea un notificador que escribe a stdout.
// Con table=true imprime la tabla del ranking; si no, una línea compacta.
func NewConsole(table bool, top int) *Console {
	return &Console{out: os.Stdout, table: table, top: top}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, top: 5}
}

// NotifyCycle imprime el ranking y el desenlace del ciclo.
func (c *Console) NotifyCycle(_ context.Context, r domain.CycleReport) error {
	ts := r.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	now := ts.Format("15:04:05")

	if len(r.Ranked) == 0 {
		fmt.Fprintf(c.out, "[%s] no assets scored | %s\n", now, r.Outcome)
		return nil
	}

	if c.table {
		c.printFull(now, r)
	} else {
		c.printCompact(now, r)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(now string, r domain.CycleReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d assets", now, len(r.Ranked))

	for i, sa := range domain.TopN(r.Ranked, c.top) {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s %.2f", sa.Asset.Symbol, sa.Score)
	}
	fmt.Fprintf(&sb, " → %s", decisionLabel(r.Decision))
	fmt.Fprintf(&sb, " [%s: %s]", r.Stage, r.Outcome)

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla del ranking y la decisión.
func (c *Console) printFull(now string, r domain.CycleReport) {
	fmt.Fprintf(c.out, "\n[%s] cycle %s: %d assets scored\n", now, shortID(r.CycleID), len(r.Ranked))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Asset", "Price", "24h %", "Volume", "Range", "Score")
	for i, sa := range domain.TopN(r.Ranked, c.top) {
		a := sa.Asset
		table.Append(
			fmt.Sprintf("%d", i+1),
			a.Symbol,
			fmt.Sprintf("$%.4f", a.Price),
			fmt.Sprintf("%+.2f", a.PriceChangePct),
			fmt.Sprintf("%.0f", a.Volume),
			fmt.Sprintf("%.2f-%.2f", a.Low24h, a.High24h),
			fmt.Sprintf("%.2f", sa.Score),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  decision: %s\n", decisionLabel(r.Decision))
	if r.Decision.Reason != "" {
		fmt.Fprintf(c.out, "  reason:   %s\n", compact(r.Decision.Reason, 120))
	}
	fmt.Fprintf(c.out, "  outcome:  %s (stage %s)\n", r.Outcome, r.Stage)
}

// PrintStats imprime la tabla de estadísticas del learning layer.
func (c *Console) PrintStats(stats []domain.AssetStats) {
	if len(stats) == 0 {
		fmt.Fprintln(c.out, "no trades recorded")
		return
	}

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Asset", "Settled", "Win rate", "Avg return")
	for _, s := range stats {
		tbl.Append(
			s.Asset,
			fmt.Sprintf("%d", s.Count),
			pctLabel(s.WinRate),
			floatLabel(s.AvgReturn),
		)
	}
	tbl.Render()
}

// PrintCounts imprime los contadores de un día, activos ordenados por nombre.
func (c *Console) PrintCounts(date string, counts domain.DayCounters, policy domain.LimitPolicy) {
	fmt.Fprintf(c.out, "%s: %d/%d trades\n", date, counts.Overall, policy.OverallMax)
	if len(counts.Assets) == 0 {
		return
	}

	symbols := make([]string, 0, len(counts.Assets))
	for s := range counts.Assets {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Asset", "Trades", "Max")
	for _, s := range symbols {
		tbl.Append(s, fmt.Sprintf("%d", counts.Assets[s]), fmt.Sprintf("%d", policy.PerAssetMax))
	}
	tbl.Render()
}

// --- helpers ---

func decisionLabel(d domain.Decision) string {
	if d.Action == "" {
		return "-"
	}
	if !d.Action.Trades() {
		return string(d.Action)
	}
	label := fmt.Sprintf("%s %g %s", d.Action, d.Amount, d.Asset)
	if d.Confidence != nil {
		label += fmt.Sprintf(" (conf %.2f)", *d.Confidence)
	}
	return label
}

func pctLabel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func floatLabel(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.4f", *v)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// compact trunca s a max runas añadiendo "...".
func compact(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
