package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-dashboard/internal/chat"
	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/dashboard"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/inference"
	"github.com/dvloznov/finance-dashboard/internal/ledger"
)

func testConfig() *config.Config {
	return config.FromEnv(func(string) string { return "" })
}

func parseViewFlags(t *testing.T, args ...string) *viewFlags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	vf := addViewFlags(fs, testConfig())
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return vf
}

func TestViewFlags_Filter(t *testing.T) {
	vf := parseViewFlags(t,
		"-from", "2024-01-01",
		"-to", "2024-03-31",
		"-category", "Gasolina, Aluguel,",
		"-kind", "expense,debt",
		"-cost-class", "fixed",
		"-paid", "no",
		"-search", "posto",
	)

	f, err := vf.filter()
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}

	unpaid := false
	want := ledger.Filter{
		From:        civil.Date{Year: 2024, Month: 1, Day: 1},
		To:          civil.Date{Year: 2024, Month: 3, Day: 31},
		Categories:  []string{"Gasolina", "Aluguel"},
		Kinds:       []domain.Kind{domain.KindExpense, domain.KindDebt},
		CostClasses: []domain.CostClass{domain.CostFixed},
		Paid:        &unpaid,
		Search:      "posto",
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestViewFlags_FilterErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "bad from date", args: []string{"-from", "01/02/2024"}},
		{name: "bad to date", args: []string{"-to", "2024-13-01"}},
		{name: "unknown kind", args: []string{"-kind", "transfer"}},
		{name: "bad paid", args: []string{"-paid", "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseViewFlags(t, tt.args...).filter(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestViewFlags_EmptyFilter(t *testing.T) {
	f, err := parseViewFlags(t).filter()
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if !f.IsZero() {
		t.Errorf("Expected zero filter, got %+v", f)
	}
}

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "timeout",
			err:  &inference.Error{Backend: "ollama", Attempts: 1, Timeout: true, Err: context.DeadlineExceeded},
			want: "did not answer in time",
		},
		{
			name: "unavailable",
			err:  &inference.Error{Backend: "ollama", Model: "m", Attempts: 2, Err: inference.ErrUnavailable},
			want: "unavailable after 2 attempt(s)",
		},
		{
			name: "empty answer",
			err:  &inference.Error{Backend: "ollama", Attempts: 1, Err: inference.ErrEmptyResponse},
			want: "empty answer",
		},
		{
			name: "budget",
			err:  fmt.Errorf("BuildContext: %w", chat.ErrBudgetExceeded),
			want: "too long",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeFailure(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("describeFailure() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

type stubGenerator struct {
	answer string
	err    error
	prompt string
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, req inference.Request) (*inference.Response, error) {
	g.prompt = req.Prompt
	if g.err != nil {
		return nil, g.err
	}
	return &inference.Response{Model: req.Model, Text: g.answer}, nil
}

func testREPL(gen inference.Generator, out *bytes.Buffer) *chatREPL {
	salary := domain.Transaction{
		ID:       "sal-1",
		Date:     civil.Date{Year: 2024, Month: 1, Day: 5},
		Category: "Salário",
		Kind:     domain.KindIncome,
		Paid:     true,
		Amount:   decimal.NewFromInt(3000),
	}
	l := ledger.New("test.csv", []domain.Transaction{salary})

	cfg := testConfig()
	state := dashboard.DefaultState()
	sessions := chat.NewSessions(chat.NewAssembler(gen, cfg.ChatOptions(), zerolog.Nop()))

	return &chatREPL{
		log:      zerolog.Nop(),
		cfg:      cfg,
		state:    state,
		view:     dashboard.Build(l, state, cfg.DashboardConfig()),
		sessions: sessions,
		session:  sessions.Create(),
		out:      out,
	}
}

func TestChatREPL_AnswersAndHistory(t *testing.T) {
	gen := &stubGenerator{answer: "<think>adding up</think>You saved everything."}
	var out bytes.Buffer
	r := testREPL(gen, &out)

	r.run(context.Background(), strings.NewReader("How much did I save?\n\n/history\n/quit\nignored\n"))

	got := out.String()
	if strings.Count(got, "You saved everything.") != 2 {
		t.Errorf("Expected the answer and its history entry, got:\n%s", got)
	}
	if !strings.Contains(got, "1. [") || !strings.Contains(got, "How much did I save?") {
		t.Errorf("History missing from output:\n%s", got)
	}
	if strings.Contains(got, "adding up") {
		t.Error("Reasoning block leaked into the answer")
	}
	if !strings.Contains(gen.prompt, "## Question\nHow much did I save?") {
		t.Errorf("Prompt does not end with the question:\n%s", gen.prompt)
	}
}

func TestChatREPL_FailureKeepsSession(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model crashed")}
	var out bytes.Buffer
	r := testREPL(gen, &out)

	r.run(context.Background(), strings.NewReader("Anything unusual?\n/history\n"))

	got := out.String()
	if !strings.Contains(got, "unavailable after 1 attempt(s)") {
		t.Errorf("Expected failure message, got:\n%s", got)
	}
	if !strings.Contains(got, "error: ") {
		t.Errorf("Failed turn should appear in history, got:\n%s", got)
	}
}
