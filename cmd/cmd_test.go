// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/stimulus-cli/internal/config"
	"github.com/xkilldash9x/stimulus-cli/internal/library"
	"github.com/xkilldash9x/stimulus-cli/internal/picker"
	"github.com/xkilldash9x/stimulus-cli/internal/presentation"
	"github.com/xkilldash9x/stimulus-cli/internal/reporting"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
	"github.com/xkilldash9x/stimulus-cli/internal/store"
	"github.com/xkilldash9x/stimulus-cli/internal/store/sqlite"
)

// -- Test Helpers --

// mockSink is a testify mock for store.Sink.
type mockSink struct {
	mock.Mock
}

func (m *mockSink) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSink) PersistRun(ctx context.Context, report *reporting.Report) error {
	return m.Called(ctx, report).Error(0)
}

type stubSinkProvider struct {
	sink store.Sink
	err  error
}

func (p *stubSinkProvider) Create(context.Context, config.Interface) (store.Sink, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.sink, func() {}, nil
}

type testEnv struct {
	dir     string
	cfgPath string
	deps    *dependencies
	picked  []picker.Item
}

// newTestEnv writes a config file pointing every path into a temp dir and
// wires a headless surface with no sink.
func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
logger:
  level: error
library:
  dir: %s
results:
  dir: %s
display:
  backend: headless
%s`, filepath.Join(dir, "stimuli"), filepath.Join(dir, "experiments"), extraConfig)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	env := &testEnv{dir: dir, cfgPath: cfgPath}
	env.deps = &dependencies{
		surfaces: &defaultSurfaceProvider{in: strings.NewReader(""), out: io.Discard},
		sinks:    &stubSinkProvider{},
		pick: func(string, []picker.Item) (int, error) {
			return picker.Aborted, nil
		},
	}
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(e.deps)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

var savedLine = regexp.MustCompile(`^([0-9a-f]{16}) (created|exists) (.+)\n$`)

// newSpec runs "specs new" and returns the address.
func (e *testEnv) newSpec(t *testing.T, args ...string) string {
	t.Helper()
	out, _, err := e.run(t, append([]string{"specs", "new"}, args...)...)
	require.NoError(t, err)
	m := savedLine.FindStringSubmatch(out)
	require.NotNil(t, m, "unexpected output %q", out)
	return m[1]
}

func decodeReport(t *testing.T, out string) *reporting.Report {
	t.Helper()
	var report reporting.Report
	require.NoError(t, jsoniter.Unmarshal([]byte(out), &report), "report output: %s", out)
	return &report
}

// -- Root Command --

func TestRootCmd_Version(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)

	out, _, err = env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stimulus-cli "+Version)
}

func TestRootCmd_ConfigErrors(t *testing.T) {
	t.Run("unreadable config file", func(t *testing.T) {
		env := newTestEnv(t, "")
		require.NoError(t, os.WriteFile(env.cfgPath, []byte("library: [unclosed\n"), 0o600))
		_, _, err := env.run(t, "specs", "list")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize configuration")
	})

	t.Run("invalid configuration", func(t *testing.T) {
		env := newTestEnv(t, "presentation:\n  default_format: sarif\n")
		_, _, err := env.run(t, "specs", "list")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load or validate config")
	})

	t.Run("context without config", func(t *testing.T) {
		_, err := getConfigFromContext(context.Background())
		assert.Error(t, err)
	})
}

// -- specs --

func TestSpecsNew(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t, "specs", "new", "fixing", "--font-size", "30", "--sign", "x")
	require.NoError(t, err)
	m := savedLine.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	assert.Equal(t, "created", m[2])
	assert.Equal(t, "Fixing(30,400,400,60,10,1,0)", m[3])
	assert.FileExists(t, filepath.Join(env.dir, "stimuli", m[1]+".json"))

	again, _, err := env.run(t, "specs", "new", "fixing", "--font-size", "30", "--sign", "x")
	require.NoError(t, err)
	assert.Equal(t, m[1]+" exists Fixing(30,400,400,60,10,1,0)\n", again, "same content, same address")

	other := env.newSpec(t, "fixing", "--font-size", "31", "--sign", "x")
	assert.NotEqual(t, m[1], other)
}

func TestSpecsNew_Variants(t *testing.T) {
	env := newTestEnv(t, "")

	out, _, err := env.run(t, "specs", "new", "circles", "--count", "12", "--color", "red", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "RandomCircles(12,5,100,200,60,10,1,7)")

	out, _, err = env.run(t, "specs", "new", "words", "--font-size", "40", "--skip-key", "space", "--repetitions", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "ColoredWords(40,60,10,3,0)")
}

func TestSpecsNew_RejectsInvalidFlags(t *testing.T) {
	env := newTestEnv(t, "")

	tests := map[string]struct {
		args []string
		want string
	}{
		"count above bound":     {[]string{"circles", "--count", "1001"}, "--count"},
		"fps below bound":       {[]string{"fixing", "--fps", "5"}, "--fps"},
		"words font size bound": {[]string{"words", "--font-size", "101"}, "--font-size"},
		"bad color":             {[]string{"fixing", "--color", "plaid"}, "--color"},
		"bad background":        {[]string{"words", "--background", "#12"}, "--background"},
		"bad skip key":          {[]string{"words", "--skip-key", "hyper"}, "--skip-key"},
		"negative repetitions":  {[]string{"words", "--repetitions", "-1"}, "repetition count"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := env.run(t, append([]string{"specs", "new"}, tc.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	entries, err := os.ReadDir(filepath.Join(env.dir, "stimuli"))
	if err == nil {
		assert.Empty(t, entries, "rejected specs must not be saved")
	}
}

func TestSpecsNew_BoundedValuesAreInclusive(t *testing.T) {
	env := newTestEnv(t, "")
	_, _, err := env.run(t, "specs", "new", "circles", "--count", "1000", "--fps", "10", "--seed", "1000")
	assert.NoError(t, err)
}

func TestSpecsList(t *testing.T) {
	env := newTestEnv(t, "")
	fixing := env.newSpec(t, "fixing")
	words := env.newSpec(t, "words")
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "stimuli", "broken.json"), []byte("{not json"), 0o600))

	out, errOut, err := env.run(t, "specs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, fixing+"  Fixing(70,400,1,60,10,1,0)\n")
	assert.Contains(t, out, words+"  ColoredWords(20,60,10,1,0)\n")
	assert.Contains(t, errOut, "broken.json")
	assert.Contains(t, errOut, string(library.MalformedRecord))
}

func TestSpecsShow(t *testing.T) {
	env := newTestEnv(t, "")
	addr := env.newSpec(t, "fixing", "--center-x", "123", "--center-y", "321")

	// center_y is read back through the legacy center_Y key and defaults to 1.
	out, errOut, err := env.run(t, "specs", "show", addr[:6])
	require.NoError(t, err)
	fixing := stimulus.NewFixing()
	fixing.CenterX = 123
	fixing.CenterY = 1
	want, err := library.Encode(fixing)
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
	assert.Contains(t, errOut, "defaulted center_Y: missing")

	out, _, err = env.run(t, "specs", "show", addr, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "type: Fixing")
	assert.Contains(t, out, "center_x: 123")
	assert.Contains(t, out, "center_y: 1\n")

	_, _, err = env.run(t, "specs", "show", addr, "--format", "toml")
	assert.Error(t, err)

	_, _, err = env.run(t, "specs", "show", "ffffffffffffffff")
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestSpecsShow_ReportsDefaultedFields(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, os.MkdirAll(filepath.Join(env.dir, "stimuli"), 0o750))
	record := `{"type":"ColoredWords","font_size":"big"}`
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "stimuli", "00000000000000aa.json"), []byte(record), 0o600))

	out, errOut, err := env.run(t, "specs", "show", "00000000000000aa")
	require.NoError(t, err)
	assert.Contains(t, out, `"font_size": 20`)
	assert.Contains(t, errOut, "defaulted font_size")
}

// -- present --

func TestPresent_SkipKeyEndsRun(t *testing.T) {
	env := newTestEnv(t, "")
	sink := &mockSink{}
	sink.On("PersistRun", mock.Anything, mock.AnythingOfType("*reporting.Report")).Return(nil).Once()
	env.deps.sinks = &stubSinkProvider{sink: sink}

	addr := env.newSpec(t, "fixing", "--fps", "10", "--duration", "1", "--repetitions", "1")

	out, _, err := env.run(t, "present", addr, "--keys", "3:A,5:enter", "--format", "json")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, presentation.StateCancelled, report.State)
	assert.Equal(t, addr, report.SpecAddress)
	assert.Equal(t, []presentation.RepetitionStats{{Index: 0, Frames: 5}, {Index: 1, Frames: 0}}, report.Repetitions)
	require.Len(t, report.Responses, 2)
	assert.Equal(t, "A", report.Responses[0].KeyName)
	assert.Equal(t, 3, report.Responses[0].Frame)
	assert.Equal(t, int(stimulus.KeyEnter), report.Responses[1].Key)

	assert.FileExists(t, filepath.Join(env.dir, "experiments", report.RunID+".json"))
	sink.AssertExpectations(t)
	persisted := sink.Calls[0].Arguments.Get(1).(*reporting.Report)
	assert.Equal(t, report.RunID, persisted.RunID)
}

func TestPresent_CompletesAllRepetitions(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("STIMULUS_RESULTS_WRITE_FILES", "false")
	addr := env.newSpec(t, "circles", "--fps", "10", "--duration", "2", "--repetitions", "2", "--count", "3")

	out, _, err := env.run(t, "present", addr, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "state: completed")
	assert.Contains(t, out, "frames_presented: 60")

	_, statErr := os.Stat(filepath.Join(env.dir, "experiments"))
	assert.True(t, os.IsNotExist(statErr), "results files are disabled")
}

func TestPresent_OutputsAndMetrics(t *testing.T) {
	env := newTestEnv(t, "")
	addr := env.newSpec(t, "words", "--fps", "10", "--duration", "1", "--repetitions", "0")
	reportPath := filepath.Join(env.dir, "report.json")
	metricsPath := filepath.Join(env.dir, "metrics", "run.prom")

	out, _, err := env.run(t, "present", addr, "-o", reportPath, "-f", "json", "--keys", "2:space", "--metrics-file", metricsPath)
	require.NoError(t, err)
	assert.Empty(t, out, "report goes to the output file")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	report := decodeReport(t, string(data))
	assert.Equal(t, presentation.StateCompleted, report.State)
	assert.Equal(t, 10, report.FramesPresented)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `stimulus_frames_presented_total{spec_type="ColoredWords"} 10`)
	assert.Contains(t, string(metrics), `stimulus_responses_total{key="space",spec_type="ColoredWords"} 1`)
}

func TestPresent_SQLiteSink(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	env := newTestEnv(t, "")
	t.Setenv("STIMULUS_RESULTS_SINK", "sqlite")
	t.Setenv("STIMULUS_RESULTS_SQLITE_PATH", dbPath)
	env.deps.sinks = NewSinkProvider()
	addr := env.newSpec(t, "fixing", "--fps", "10", "--duration", "1", "--repetitions", "0")

	out, _, err := env.run(t, "present", addr, "--format", "json", "--keys", "4:B")
	require.NoError(t, err)
	report := decodeReport(t, out)

	st, err := sqlite.Open(dbPath, nil)
	require.NoError(t, err)
	defer st.Close()
	stored, err := st.LoadRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.Responses, stored.Responses)
	assert.Equal(t, report.Repetitions, stored.Repetitions)
}

func TestPresent_FlagOverrides(t *testing.T) {
	t.Run("sink flag replaces the configured sink", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "runs.db")
		env := newTestEnv(t, "")
		t.Setenv("STIMULUS_RESULTS_SQLITE_PATH", dbPath)
		env.deps.sinks = NewSinkProvider()
		addr := env.newSpec(t, "fixing", "--fps", "10", "--duration", "1", "--repetitions", "0")

		out, _, err := env.run(t, "present", addr, "--format", "json", "--sink", "sqlite")
		require.NoError(t, err)
		report := decodeReport(t, out)

		st, err := sqlite.Open(dbPath, nil)
		require.NoError(t, err)
		defer st.Close()
		stored, err := st.LoadRun(context.Background(), report.RunID)
		require.NoError(t, err)
		assert.Equal(t, report.Repetitions, stored.Repetitions)
	})

	t.Run("unknown sink is rejected before the run", func(t *testing.T) {
		env := newTestEnv(t, "")
		addr := env.newSpec(t, "fixing")
		_, _, err := env.run(t, "present", addr, "--sink", "kafka")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --sink")
	})

	t.Run("headless flag replaces a terminal backend", func(t *testing.T) {
		env := newTestEnv(t, "")
		addr := env.newSpec(t, "fixing", "--fps", "10", "--duration", "1", "--repetitions", "0")
		t.Setenv("STIMULUS_DISPLAY_BACKEND", "terminal")
		out, _, err := env.run(t, "present", addr, "--format", "json", "--headless", "--keys", "2:A")
		require.NoError(t, err)
		report := decodeReport(t, out)
		require.Len(t, report.Responses, 1)
		assert.Equal(t, 2, report.Responses[0].Frame)
	})
}

func TestPresent_Errors(t *testing.T) {
	t.Run("unknown address", func(t *testing.T) {
		env := newTestEnv(t, "")
		_, _, err := env.run(t, "present", "abcdef")
		assert.ErrorIs(t, err, library.ErrNotFound)
	})

	t.Run("scripted keys need a headless display", func(t *testing.T) {
		env := newTestEnv(t, "")
		addr := env.newSpec(t, "fixing")
		t.Setenv("STIMULUS_DISPLAY_BACKEND", "terminal")
		_, _, err := env.run(t, "present", addr, "--keys", "1:A")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--keys requires a headless display")
	})

	t.Run("unsupported format", func(t *testing.T) {
		env := newTestEnv(t, "")
		addr := env.newSpec(t, "fixing")
		_, _, err := env.run(t, "present", addr, "--format", "sarif")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})

	t.Run("sink failure", func(t *testing.T) {
		env := newTestEnv(t, "")
		sinkErr := errors.New("connection refused")
		env.deps.sinks = &stubSinkProvider{err: sinkErr}
		addr := env.newSpec(t, "fixing")
		_, _, err := env.run(t, "present", addr)
		assert.ErrorIs(t, err, sinkErr)
	})

	t.Run("persist failure is reported", func(t *testing.T) {
		env := newTestEnv(t, "")
		sink := &mockSink{}
		sink.On("PersistRun", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		env.deps.sinks = &stubSinkProvider{sink: sink}
		addr := env.newSpec(t, "fixing", "--fps", "10", "--duration", "1", "--repetitions", "0")
		_, _, err := env.run(t, "present", addr, "--format", "json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to persist run")
	})
}

func TestParseKeyScript(t *testing.T) {
	keys, err := parseKeyScript([]string{"1:a", " 30 :enter", "64:32"})
	require.NoError(t, err)
	assert.Equal(t, map[int]stimulus.Key{1: stimulus.Key('A'), 30: stimulus.KeyEnter, 64: stimulus.KeySpace}, keys)

	keys, err = parseKeyScript(nil)
	require.NoError(t, err)
	assert.Nil(t, keys)

	for _, bad := range []string{"enter", "0:enter", "x:enter", "3:hyper"} {
		_, err := parseKeyScript([]string{bad})
		assert.Error(t, err, bad)
	}
}

// -- browse --

func TestBrowse(t *testing.T) {
	t.Run("presents the picked spec", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.newSpec(t, "fixing", "--fps", "10", "--duration", "1", "--repetitions", "0")
		env.newSpec(t, "words", "--fps", "10", "--duration", "1", "--repetitions", "0")

		env.deps.pick = func(title string, items []picker.Item) (int, error) {
			env.picked = items
			for i, it := range items {
				if strings.HasPrefix(it.Summary, "ColoredWords") {
					return i, nil
				}
			}
			return picker.Aborted, nil
		}

		out, _, err := env.run(t, "browse", "--format", "json")
		require.NoError(t, err)
		assert.Len(t, env.picked, 2)
		report := decodeReport(t, out)
		assert.Equal(t, stimulus.KindColoredWords, report.SpecType)
		assert.Equal(t, presentation.StateCompleted, report.State)
	})

	t.Run("abort presents nothing", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.newSpec(t, "fixing")
		out, _, err := env.run(t, "browse")
		require.NoError(t, err)
		assert.Equal(t, "No spec selected\n", out)
	})

	t.Run("empty library", func(t *testing.T) {
		env := newTestEnv(t, "")
		out, _, err := env.run(t, "browse")
		require.NoError(t, err)
		assert.Contains(t, out, "No specs in")
	})

	t.Run("picker error", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.newSpec(t, "fixing")
		pickErr := errors.New("no tty")
		env.deps.pick = func(string, []picker.Item) (int, error) { return picker.Aborted, pickErr }
		_, _, err := env.run(t, "browse")
		assert.ErrorIs(t, err, pickErr)
	})
}
