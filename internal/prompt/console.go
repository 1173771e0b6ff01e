package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"entity-harmonizer/internal/harmonize"
	"entity-harmonizer/internal/match"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	nameStyle  = lipgloss.NewStyle().Bold(true)
	indexStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// Console asks an operator for decisions over line based I/O.
type Console struct {
	out        io.Writer
	skipMarker string
	logger     *zap.Logger

	in    io.Reader
	lines chan string
	done  chan struct{}
	stop  sync.Once
}

// Option configures a Console.
type Option func(*Console)

// WithSkipMarker sets the input that skips a name.
func WithSkipMarker(marker string) Option {
	return func(c *Console) {
		if m := strings.TrimSpace(marker); m != "" {
			c.skipMarker = m
		}
	}
}

// WithLogger sets the console logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConsole returns a console reading commands from in and writing
// prompts to out.
func NewConsole(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:         in,
		out:        out,
		skipMarker: harmonize.DefaultConfig().SkipMarker,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Decide implements harmonize.DecisionProvider.
func (c *Console) Decide(ctx context.Context, p harmonize.Prompt) (harmonize.Decision, error) {
	ranked := p.Ranked()
	pageSize := p.PageSize
	if pageSize < 1 {
		pageSize = match.DefaultMaxSuggestions
	}

	shown := min(pageSize, len(ranked))

	c.printf("\n%s %s\n", titleStyle.Render(fmt.Sprintf("[%d/%d]", p.Position, p.Total)),
		nameStyle.Render(strconv.Quote(p.Name)))

	if p.Rejected != nil {
		c.printf("%s\n", errorStyle.Render("previous answer refused: "+p.Rejected.Error()))
	}

	if p.HasSynthetic() {
		c.printEntry(0, p.Candidates[0])
	}

	c.printEntries(ranked, 0, shown)

	for {
		c.printf("%s\n> ", hintStyle.Render(c.hint(shown < len(ranked))))

		line, err := c.readLine(ctx)
		if err != nil {
			return harmonize.Decision{}, err
		}

		cmd := strings.TrimSpace(line)

		switch {
		case cmd == "":
			return harmonize.AcceptTop(), nil

		case strings.EqualFold(cmd, c.skipMarker):
			return harmonize.Skip(), nil

		case strings.EqualFold(cmd, harmonize.MoreMarker):
			if shown >= len(ranked) {
				c.reject("no more candidates")
				continue
			}

			next := min(shown+pageSize, len(ranked))
			c.printEntries(ranked, shown, next)
			shown = next

		case strings.EqualFold(cmd, harmonize.CustomMarker):
			c.printf("custom name: ")

			text, err := c.readLine(ctx)
			if err != nil {
				return harmonize.Decision{}, err
			}

			if strings.TrimSpace(text) == "" {
				c.reject("custom name must not be empty")
				continue
			}

			return harmonize.Custom(strings.TrimSpace(text)), nil

		default:
			n, err := strconv.Atoi(cmd)
			if err != nil || !isNumber(cmd) {
				c.reject(fmt.Sprintf("%q is not a number, %q, %q or %q",
					cmd, c.skipMarker, harmonize.CustomMarker, harmonize.MoreMarker))

				continue
			}

			index, ok := candidateIndex(p, n)
			if !ok {
				c.reject(fmt.Sprintf("no entry %d", n))
				continue
			}

			return harmonize.AcceptCandidate(index), nil
		}
	}
}

// candidateIndex maps a displayed entry number onto Prompt.Candidates.
func candidateIndex(p harmonize.Prompt, n int) (int, bool) {
	if p.HasSynthetic() {
		return n, n >= 0 && n < len(p.Candidates)
	}

	return n - 1, n >= 1 && n <= len(p.Candidates)
}

func (c *Console) hint(more bool) string {
	parts := []string{"enter = 1", "number = pick", harmonize.CustomMarker + " = custom name", c.skipMarker + " = skip"}
	if more {
		parts = append(parts, harmonize.MoreMarker+" = more candidates")
	}

	return strings.Join(parts, ", ")
}

func (c *Console) printEntries(ranked match.CandidateList, from, to int) {
	for i := from; i < to; i++ {
		c.printEntry(i+1, ranked[i])
	}
}

func (c *Console) printEntry(n int, cand match.Candidate) {
	c.printf("  %s %s\n", indexStyle.Render(fmt.Sprintf("%2d)", n)), cand.String())
}

func (c *Console) reject(msg string) {
	c.logger.Debug("input rejected", zap.String("reason", msg))
	c.printf("%s\n", errorStyle.Render(msg))
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// readLine waits for the next input line. End of input and a cancelled
// context both interrupt the session; after a cancellation the console
// stops reading.
func (c *Console) readLine(ctx context.Context) (string, error) {
	if c.lines == nil {
		c.lines = make(chan string)
		c.done = make(chan struct{})
		go c.scan()
	}

	select {
	case <-ctx.Done():
		c.stop.Do(func() { close(c.done) })
		return "", fmt.Errorf("%w: %w", harmonize.ErrInterrupted, ctx.Err())
	case line, ok := <-c.lines:
		if !ok {
			return "", harmonize.ErrInterrupted
		}

		return line, nil
	}
}

// scan feeds input lines to readLine. A Read already blocked on the input
// cannot be cancelled; the goroutine exits once it returns.
func (c *Console) scan() {
	defer close(c.lines)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case <-c.done:
			return
		default:
		}

		select {
		case c.lines <- scanner.Text():
		case <-c.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("reading operator input", zap.Error(err))
	}
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}
