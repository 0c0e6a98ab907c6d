package controller

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "github.com/whr0724/genprog-code/internal/model"
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output, done: make(chan struct{})}
}

// Start launches the interactive view in its own goroutine.
func (t *TUI) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.program = tea.NewProgram(newRunModel(), tea.WithOutput(t.output))

	go func() {
		defer close(t.done)

		if _, err := t.program.Run(); err != nil {
			fmt.Fprintf(t.output, "display error: %v\n", err)
		}
	}()

	return nil
}

// Close stops the interactive view.
func (t *TUI) Close(_ context.Context) {
	if t.program != nil {
		t.program.Quit()
	}
}

// Wait blocks until the view exits (user quits or Close is called).
func (t *TUI) Wait(_ context.Context) {
	if t.program != nil {
		<-t.done
	}
}

// DisplayEstimation shows the candidate-edit counts per operator.
func (t *TUI) DisplayEstimation(ctx context.Context, estimates []EditEstimate, total int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.send(estimationMsg{estimates: estimates, total: total})

	return nil
}

// DisplayRunInfo announces the search configuration.
func (t *TUI) DisplayRunInfo(ctx context.Context, mode string, demes, popSize, generations int) {
	if ctx.Err() != nil {
		return
	}

	t.send(runInfoMsg{mode: mode, demes: demes, popSize: popSize, generations: generations})
}

// DisplayGeneration reports one deme generation's fitness summary.
func (t *TUI) DisplayGeneration(ctx context.Context, deme, gen int, best, mean, max float64) {
	if ctx.Err() != nil {
		return
	}

	t.send(generationMsg{deme: deme, gen: gen, best: best, mean: mean, max: max})
}

// DisplayTrial reports brute-force progress.
func (t *TUI) DisplayTrial(ctx context.Context, trial, total int, best float64) {
	if ctx.Err() != nil {
		return
	}

	t.send(trialMsg{trial: trial, total: total, best: best})
}

// DisplayResult shows the final outcome.
func (t *TUI) DisplayResult(ctx context.Context, result m.RepairResult) {
	if ctx.Err() != nil {
		return
	}

	t.send(resultMsg{result: result})
}

func (t *TUI) send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

type estimationMsg struct {
	estimates []EditEstimate
	total     int
}

type runInfoMsg struct {
	mode        string
	demes       int
	popSize     int
	generations int
}

type generationMsg struct {
	deme, gen       int
	best, mean, max float64
}

type trialMsg struct {
	trial, total int
	best         float64
}

type resultMsg struct {
	result m.RepairResult
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// demeState is the latest generation summary for one deme.
type demeState struct {
	gen        int
	best, mean float64
}

// runModel is the Bubble Tea model for a search run.
type runModel struct {
	mode        string
	demes       int
	popSize     int
	generations int
	max         float64

	demeStates map[int]demeState

	estimates []EditEstimate
	total     int

	trial, trialTotal int
	trialBest         float64
	bar               progress.Model

	result   *m.RepairResult
	quitting bool
}

func newRunModel() runModel {
	return runModel{
		demeStates: make(map[int]demeState),
		bar:        progress.New(progress.WithDefaultGradient()),
	}
}

// Init implements tea.Model.
func (mo runModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (mo runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			mo.quitting = true
			return mo, tea.Quit
		}
	case tea.WindowSizeMsg:
		mo.bar.Width = msg.Width - 8
	case estimationMsg:
		mo.estimates = msg.estimates
		mo.total = msg.total
	case runInfoMsg:
		mo.mode = msg.mode
		mo.demes = msg.demes
		mo.popSize = msg.popSize
		mo.generations = msg.generations
	case generationMsg:
		mo.max = msg.max
		mo.demeStates[msg.deme] = demeState{gen: msg.gen, best: msg.best, mean: msg.mean}
	case trialMsg:
		mo.trial = msg.trial
		mo.trialTotal = msg.total
		mo.trialBest = msg.best
	case resultMsg:
		result := msg.result
		mo.result = &result
	}

	return mo, nil
}

// View implements tea.Model.
func (mo runModel) View() string {
	if mo.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("genprog — program repair"))
	b.WriteString("\n\n")

	if mo.mode != "" {
		fmt.Fprintf(&b, "%s %s   %s %d   %s %d   %s %d\n\n",
			labelStyle.Render("mode"), mo.mode,
			labelStyle.Render("demes"), mo.demes,
			labelStyle.Render("pop"), mo.popSize,
			labelStyle.Render("gens"), mo.generations)
	}

	mo.renderEstimates(&b)
	mo.renderDemes(&b)
	mo.renderTrials(&b)
	mo.renderResult(&b)

	b.WriteString(labelStyle.Render("press q to quit"))
	b.WriteString("\n")

	return b.String()
}

func (mo runModel) renderEstimates(b *strings.Builder) {
	if len(mo.estimates) == 0 {
		return
	}

	var lines []string
	for _, est := range mo.estimates {
		lines = append(lines, fmt.Sprintf("%-14s %6d candidates  top weight %.3f",
			est.Operator, est.Candidates, est.TopWeight))
	}

	lines = append(lines, fmt.Sprintf("%-14s %6d", "total", mo.total))

	b.WriteString(borderStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")
}

func (mo runModel) renderDemes(b *strings.Builder) {
	if len(mo.demeStates) == 0 {
		return
	}

	demes := make([]int, 0, len(mo.demeStates))
	for d := range mo.demeStates {
		demes = append(demes, d)
	}

	sort.Ints(demes)

	var lines []string
	for _, d := range demes {
		st := mo.demeStates[d]
		lines = append(lines, fmt.Sprintf("deme %d  gen %3d  best %6.2f  mean %6.2f / %.0f",
			d, st.gen, st.best, st.mean, mo.max))
	}

	b.WriteString(borderStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")

	if mo.generations > 0 {
		maxGen := 0
		for _, st := range mo.demeStates {
			if st.gen > maxGen {
				maxGen = st.gen
			}
		}

		b.WriteString(mo.bar.ViewAs(float64(maxGen) / float64(mo.generations)))
		b.WriteString("\n\n")
	}
}

func (mo runModel) renderTrials(b *strings.Builder) {
	if mo.trialTotal == 0 {
		return
	}

	fmt.Fprintf(b, "trial %d/%d  best %.2f\n", mo.trial, mo.trialTotal, mo.trialBest)
	b.WriteString(mo.bar.ViewAs(float64(mo.trial) / float64(mo.trialTotal)))
	b.WriteString("\n\n")
}

func (mo runModel) renderResult(b *strings.Builder) {
	if mo.result == nil {
		return
	}

	if mo.result.Solved {
		b.WriteString(goodStyle.Render(fmt.Sprintf("repair found after %d trials", mo.result.Trials)))
		b.WriteString("\n")

		if mo.result.History != "" {
			fmt.Fprintf(b, "edits: %s\n", mo.result.History)
		}
	} else {
		b.WriteString(badStyle.Render(fmt.Sprintf("no repair after %d trials (best %.2f)",
			mo.result.Trials, mo.result.Fitness)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
}
