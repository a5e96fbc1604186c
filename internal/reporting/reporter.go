// File: internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Supported output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Formats lists the accepted values for New's format argument.
func Formats() []string { return []string{FormatJSON, FormatYAML, FormatText} }

// Reporter writes run reports to an output.
type Reporter interface {
	// Write emits a single report.
	Write(report *Report) error
	// Close finalizes the output and closes any underlying file.
	Close() error
}

// nopWriteCloser lets stdout be handed out as an io.WriteCloser whose Close
// leaves the stream open.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	return NewTo(format, outputPath, os.Stdout)
}

// NewTo is New with stdout replaced by the given writer.
func NewTo(format, outputPath string, stdout io.Writer) (Reporter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatJSON, FormatYAML, FormatText:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWriter(format, writer), nil
}

// NewWriter returns a reporter for an already validated format. It takes
// ownership of w.
func NewWriter(format string, w io.WriteCloser) Reporter {
	switch format {
	case FormatYAML:
		return &yamlReporter{w: w}
	case FormatText:
		return newTextReporter(w)
	default:
		return &jsonReporter{w: w}
	}
}

// -- JSON --

type jsonReporter struct {
	w io.WriteCloser
}

func (r *jsonReporter) Write(report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error { return r.w.Close() }

// -- YAML --

type yamlReporter struct {
	w     io.WriteCloser
	count int
}

func (r *yamlReporter) Write(report *Report) error {
	if r.count > 0 {
		if _, err := io.WriteString(r.w, "---\n"); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	r.count++
	return enc.Close()
}

func (r *yamlReporter) Close() error { return r.w.Close() }

// -- Text --

type textReporter struct {
	w     io.WriteCloser
	label lipgloss.Style
	head  lipgloss.Style
}

func newTextReporter(w io.WriteCloser) *textReporter {
	renderer := lipgloss.NewRenderer(w)
	return &textReporter{
		w:     w,
		label: renderer.NewStyle().Bold(true).Width(11),
		head:  renderer.NewStyle().Underline(true),
	}
}

func (r *textReporter) Write(report *Report) error {
	var sb strings.Builder
	line := func(label, format string, args ...interface{}) {
		sb.WriteString(r.label.Render(label))
		sb.WriteString(fmt.Sprintf(format, args...))
		sb.WriteByte('\n')
	}

	line("Run", "%s", report.RunID)
	if report.SpecAddress != "" {
		line("Spec", "%s (%s)", report.SpecSummary, report.SpecAddress)
	} else {
		line("Spec", "%s", report.SpecSummary)
	}
	line("Seed", "%d", report.Seed)
	line("State", "%s", report.State)
	line("Frames", "%d over %d repetition(s) at %d fps", report.FramesPresented, len(report.Repetitions), report.FrameRate)
	line("Started", "%s", report.StartedAt.Format("2006-01-02 15:04:05.000"))
	line("Elapsed", "%s", report.Elapsed())
	line("Responses", "%d", len(report.Responses))

	if len(report.Responses) > 0 {
		sb.WriteString(r.head.Render(fmt.Sprintf("%-5s %-7s %-10s %s", "rep", "frame", "offset", "key")))
		sb.WriteByte('\n')
		for _, resp := range report.Responses {
			sb.WriteString(fmt.Sprintf("%-5d %-7d %-10s %s\n",
				resp.Repetition, resp.Frame, fmt.Sprintf("%.3fs", resp.OffsetSeconds), resp.KeyName))
		}
	}

	if _, err := io.WriteString(r.w, sb.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *textReporter) Close() error { return r.w.Close() }

// WriteFile stores report as <dir>/<run id>.json and returns the path.
func WriteFile(dir string, report *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, report.RunID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create results file %s: %w", path, err)
	}
	r := &jsonReporter{w: f}
	if err := r.Write(report); err != nil {
		_ = r.Close()
		return "", err
	}
	if err := r.Close(); err != nil {
		return "", fmt.Errorf("failed to close results file %s: %w", path, err)
	}
	return path, nil
}
