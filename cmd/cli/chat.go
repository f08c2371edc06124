package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/anomaly"
	"github.com/dvloznov/finance-dashboard/internal/chat"
	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/dashboard"
	"github.com/dvloznov/finance-dashboard/internal/inference"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
	"github.com/dvloznov/finance-dashboard/internal/logger"
)

// contextFor builds the assistant prompt from the current view.
func contextFor(view *dashboard.View, question string, b chat.Budget) (*chat.ChatContext, error) {
	anomalies := make([]anomaly.Anomaly, 0, len(view.Anomalies.Items)+len(view.Outliers))
	anomalies = append(anomalies, view.Anomalies.Items...)
	anomalies = append(anomalies, view.Outliers...)
	return chat.BuildContext(view.KPIs, anomalies, view.Projection.Projection, question, b)
}

// describeFailure turns an assistant failure into a message for the user.
func describeFailure(err error) string {
	var ierr *inference.Error
	switch {
	case errors.As(err, &ierr) && ierr.Timeout:
		return fmt.Sprintf("The assistant (%s) did not answer in time. Try a shorter question or a larger FINDASH_INFERENCE_TIMEOUT.", ierr.Backend)
	case errors.As(err, &ierr) && errors.Is(err, inference.ErrEmptyResponse):
		return "The assistant returned an empty answer. Try rephrasing the question."
	case errors.As(err, &ierr):
		return fmt.Sprintf("The assistant (%s, model %s) is unavailable after %d attempt(s): %v", ierr.Backend, ierr.Model, ierr.Attempts, ierr.Err)
	case errors.Is(err, chat.ErrBudgetExceeded):
		return "The question is too long to send with the dashboard summary."
	case errors.Is(err, chat.ErrEmptyQuestion):
		return "Please type a question."
	case errors.Is(err, chat.ErrRequestInFlight):
		return "Still waiting for the previous answer."
	}
	return err.Error()
}

func newAssembler(ctx context.Context, log zerolog.Logger, cfg *config.Config) *chat.Assembler {
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Inference.Backend).Msg("Failed to create inference client")
	}
	log.Info().Str("backend", gen.Name()).Str("model", cfg.Inference.Model).Msg("Assistant ready")
	return chat.NewAssembler(gen, cfg.ChatOptions(), log)
}

func runAsk(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	question := fs.String("q", "", "Question to ask (required)")
	fs.Parse(os.Args[2:])

	if strings.TrimSpace(*question) == "" {
		log.Fatal().Msg("Usage: cli ask -q \"QUESTION\" [filters]")
	}

	ctx, cancel := commandContext(log, 2*time.Minute+2*cfg.Inference.Timeout)
	defer cancel()

	view, _ := buildView(ctx, log, cfg, vf)
	cc, err := contextFor(view, *question, cfg.Budget())
	if err != nil {
		fmt.Fprintln(os.Stderr, describeFailure(err))
		os.Exit(1)
	}
	log.Debug().
		Int("prompt_bytes", len(cc.Prompt)).
		Int("anomalies_dropped", cc.AnomaliesDropped).
		Bool("projection_dropped", cc.ProjectionDropped).
		Msg("Context assembled")

	answer, err := newAssembler(ctx, log, cfg).Submit(ctx, cc)
	if err != nil {
		fmt.Fprintln(os.Stderr, describeFailure(err))
		os.Exit(1)
	}
	fmt.Println(answer)
}

func runChat(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	vf := addViewFlags(fs, cfg)
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	view, store := buildView(loadCtx, log, cfg, vf)
	cancel()

	state := view.State
	sessions := chat.NewSessions(newAssembler(ctx, log, cfg))
	id := sessions.Create()
	defer sessions.Delete(id)

	repl := &chatREPL{
		log:      log,
		cfg:      cfg,
		store:    store,
		state:    state,
		view:     view,
		sessions: sessions,
		session:  id,
		out:      os.Stdout,
	}
	repl.run(ctx, os.Stdin)
}

// chatREPL reads one question per line and answers it against the current
// view. Lines starting with "/" are commands.
type chatREPL struct {
	log      zerolog.Logger
	cfg      *config.Config
	store    *ledger.Store
	state    dashboard.State
	view     *dashboard.View
	sessions *chat.Sessions
	session  string
	out      io.Writer
}

func (r *chatREPL) run(ctx context.Context, in io.Reader) {
	fmt.Fprintf(r.out, "Chatting about %d transactions from %s.\n", r.view.KPIs.Transactions, r.view.Source)
	fmt.Fprintln(r.out, "Commands: /history, /reload, /quit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/history":
			r.history()
			continue
		case "/reload":
			r.reload(ctx)
			continue
		}

		cc, err := contextFor(r.view, line, r.cfg.Budget())
		if err != nil {
			fmt.Fprintln(r.out, describeFailure(err))
			continue
		}
		answer, err := r.sessions.Ask(ctx, r.session, cc)
		if err != nil {
			fmt.Fprintln(r.out, describeFailure(err))
			continue
		}
		fmt.Fprintf(r.out, "\n%s\n\n", answer)
	}
	if err := scanner.Err(); err != nil {
		r.log.Error().Err(err).Msg("Failed to read input")
	}
}

func (r *chatREPL) history() {
	turns, err := r.sessions.History(r.session)
	if err != nil {
		fmt.Fprintln(r.out, describeFailure(err))
		return
	}
	for i, t := range turns {
		fmt.Fprintf(r.out, "%d. [%s] %s\n", i+1, t.AskedAt.Format("15:04:05"), t.Question)
		if t.Error != "" {
			fmt.Fprintf(r.out, "   error: %s\n", t.Error)
			continue
		}
		fmt.Fprintf(r.out, "   %s\n", t.Answer)
	}
}

func (r *chatREPL) reload(ctx context.Context) {
	reloadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	l, err := r.store.Reload(reloadCtx)
	if err != nil {
		// The previous snapshot stays current.
		fmt.Fprintf(r.out, "Reload failed, keeping the previous data: %v\n", err)
		return
	}
	r.view = dashboard.Build(l, r.state, r.cfg.DashboardConfig())
	fmt.Fprintf(r.out, "Reloaded %d transactions.\n", l.Len())
}
