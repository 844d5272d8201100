package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/abelbrown/viralscope/internal/coord"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		req       coord.Request
		noSpinner bool
		width     int
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze trending posts in a niche",
		Example: `  vs analyze --niche food
  vs analyze --niche travel --platform youtube --limit 3 --mode quick --provider claude`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(serverURL)
			run := func(ctx context.Context) (*coord.Response, []byte, error) {
				return client.Analyze(ctx, req)
			}

			var (
				resp *coord.Response
				raw  []byte
				err  error
			)
			if noSpinner || jsonOut {
				resp, raw, err = run(cmd.Context())
			} else {
				label := fmt.Sprintf("Analyzing %s posts...", strings.ToLower(req.Niche))
				resp, raw, err = runWithSpinner(cmd.Context(), label, run)
			}
			if err != nil {
				return err
			}

			if jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderResponse(resp, width))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Niche, "niche", "", "content niche, e.g. food, travel, tech")
	cmd.Flags().StringVar(&req.Platform, "platform", "", "youtube, tiktok, instagram or linkedin (default: all)")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "number of posts to analyze (default 5, max 20)")
	cmd.Flags().StringVar(&req.Mode, "mode", "", "full or quick")
	cmd.Flags().StringVar(&req.Provider, "provider", "", "preferred provider: openai, claude, gemini or grok")
	cmd.Flags().BoolVar(&noSpinner, "no-spinner", false, "disable the progress spinner")
	cmd.Flags().IntVar(&width, "width", 100, "card width in columns")
	_ = cmd.MarkFlagRequired("niche")
	return cmd
}

type analyzeDoneMsg struct {
	resp *coord.Response
	raw  []byte
	err  error
}

// spinnerModel shows progress while one analysis request is in flight.
type spinnerModel struct {
	spinner spinner.Model
	label   string
	work    tea.Cmd
	cancel  context.CancelFunc
	done    *analyzeDoneMsg
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case analyzeDoneMsg:
		m.done = &msg
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.cancel()
			m.done = &analyzeDoneMsg{err: context.Canceled}
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done != nil {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), MetaText.Render(m.label))
}

// runWithSpinner runs fn while a spinner renders on stderr.
func runWithSpinner(parent context.Context, label string, fn func(context.Context) (*coord.Response, []byte, error)) (*coord.Response, []byte, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	m := spinnerModel{
		spinner: s,
		label:   label,
		cancel:  cancel,
		work: func() tea.Msg {
			resp, raw, err := fn(ctx)
			return analyzeDoneMsg{resp: resp, raw: raw, err: err}
		},
	}

	final, err := tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithContext(parent)).Run()
	if err != nil {
		return nil, nil, fmt.Errorf("spinner: %w", err)
	}
	done := final.(spinnerModel).done
	if done == nil {
		return nil, nil, context.Canceled
	}
	return done.resp, done.raw, done.err
}
