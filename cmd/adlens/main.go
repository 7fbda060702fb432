// adlens — terminal client for the ad-performance analysis services.
//
// One-shot mode runs a single query or status check and exits;
// without flags it drops into an interactive prompt with commands for
// switching categories, browsing history, and managing the bearer
// token.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/adlens/adlens/internal/app"
	"github.com/adlens/adlens/internal/category"
	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/health"
	"github.com/adlens/adlens/internal/metrics"
	"github.com/adlens/adlens/internal/session"
	"github.com/adlens/adlens/internal/telemetry"
)

const historyPreviewChars = 150

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	var (
		queryFlag = flag.String("query", "", "run one query and exit")
		catFlag   = flag.String("category", "", "report category (campaign, creative, siteapp)")
		statusCmd = flag.Bool("status", false, "probe all services, print status, and exit")
		tokenFlag = flag.String("token", "", "bearer token (overrides the saved credential)")
		verbose   = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := config.Load()

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}
	defer shutdown(context.Background())

	a := app.New(cfg)

	if *tokenFlag != "" {
		if err := a.Store().SetCredential(*tokenFlag); err != nil {
			log.Fatal().Err(err).Msg("Invalid token")
		}
	}
	if *catFlag != "" {
		cat, err := category.Parse(*catFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		a.Store().SetCategory(cat)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *statusCmd:
		printStatus(ctx, a, cfg)
	case *queryFlag != "":
		if !runQuery(ctx, a, *queryFlag) {
			os.Exit(1)
		}
	default:
		runInteractive(ctx, a, cfg)
	}
}

// runQuery submits one query and renders the result. Returns false on
// failure so one-shot mode can exit non-zero.
func runQuery(ctx context.Context, a *app.App, query string) bool {
	rec, err := a.Submit(ctx, query)
	if err != nil {
		if msg := app.UserMessage(err); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		// Interrupt exits quietly with success; real failures are loud.
		return errors.Is(err, context.Canceled)
	}
	printRecord(a, rec)
	return true
}

func printRecord(a *app.App, rec session.Record) {
	info := rec.Category.Info()
	fmt.Printf("\n%s — %s\n\n", info.Label, rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Println(rec.Analysis)

	if kpis := a.Metrics(rec); len(kpis) > 0 {
		fmt.Println()
		printMetrics(kpis)
	}
	fmt.Println()
}

func printMetrics(kpis []metrics.Metric) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, m := range kpis {
		fmt.Fprintf(w, "  %s\t%s\n", m.Label, m.Value)
	}
	w.Flush()
}

func printStatus(ctx context.Context, a *app.App, cfg *config.Config) {
	statuses, overall := a.RefreshStatus(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, cat := range cfg.Categories {
		fmt.Fprintf(w, "%s\t%s\n", cat.Info().Label, statuses[cat])
	}
	fmt.Fprintf(w, "overall\t%s\n", overall)
	w.Flush()
}

const helpText = `Commands:
  <query>            submit a query against the active category
  /category [name]   show or switch the report category
  /status            probe all services
  /history           list retained analyses
  /show <n>          re-display history entry n (1 = most recent)
  /token <value>     set the bearer token
  /logout            clear the token and wipe history
  /help              this help
  /quit              exit`

func runInteractive(ctx context.Context, a *app.App, cfg *config.Config) {
	if cfg.MonitorInterval > 0 {
		mon := health.NewMonitor(a.Health(), cfg.MonitorInterval)
		mon.Start(ctx)
		defer mon.Stop()
	}

	if _, ok := a.Store().Credential(); !ok && cfg.RequiresAuth {
		fmt.Println("No bearer token set. Use /token <value> before querying.")
	}
	fmt.Println("Type /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		cat := a.Store().Category()
		fmt.Printf("adlens[%s]> ", cat)

		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, a, cfg, line); quit {
				return
			}
			continue
		}

		rec, err := a.Submit(ctx, line)
		if err != nil {
			if msg := app.UserMessage(err); msg != "" {
				fmt.Println(msg)
			}
			continue
		}
		printRecord(a, rec)
	}
}

// runCommand handles one slash command; returns true on /quit.
func runCommand(ctx context.Context, a *app.App, cfg *config.Config, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(helpText)

	case "/category":
		if len(args) == 0 {
			for _, c := range cfg.Categories {
				marker := "  "
				if c == a.Store().Category() {
					marker = "* "
				}
				info := c.Info()
				fmt.Printf("%s%s — %s\n", marker, c, info.Description)
				fmt.Printf("    e.g. %q\n", info.Placeholder)
			}
			break
		}
		cat, err := category.Parse(args[0])
		if err != nil {
			fmt.Println(err)
			break
		}
		a.Store().SetCategory(cat)
		fmt.Printf("Active category: %s\n", cat.Info().Label)

	case "/status":
		printStatus(ctx, a, cfg)

	case "/history":
		hist := a.Store().History()
		if len(hist) == 0 {
			fmt.Println("No analyses yet.")
			break
		}
		for i, rec := range hist {
			fmt.Printf("%2d. [%s] %s\n    %s\n", i+1, rec.Category, rec.Query, rec.Preview(historyPreviewChars))
		}

	case "/show":
		hist := a.Store().History()
		if len(args) == 0 {
			fmt.Println("Usage: /show <n>")
			break
		}
		var n int
		if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n < 1 || n > len(hist) {
			fmt.Printf("Pick an entry between 1 and %d.\n", len(hist))
			break
		}
		rec, err := a.Store().SelectFromHistory(hist[n-1].ID)
		if err != nil {
			fmt.Println(err)
			break
		}
		printRecord(a, rec)

	case "/token":
		if len(args) == 0 {
			fmt.Println("Usage: /token <value>")
			break
		}
		if err := a.Store().SetCredential(args[0]); err != nil {
			fmt.Println(err)
			break
		}
		fmt.Println("Token saved.")

	case "/logout":
		a.Store().ClearCredential()
		fmt.Println("Token cleared; history wiped.")

	default:
		fmt.Printf("Unknown command %s — try /help.\n", cmd)
	}
	return false
}
