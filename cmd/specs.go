// File: cmd/specs.go
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/stimulus-cli/internal/config"
	"github.com/xkilldash9x/stimulus-cli/internal/library"
	"github.com/xkilldash9x/stimulus-cli/internal/observability"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

func openLibrary(cfg config.Interface) (*library.Library, error) {
	return library.Open(cfg.Library().Dir, observability.GetLogger().Named("library"))
}

func newSpecsCmd() *cobra.Command {
	specsCmd := &cobra.Command{
		Use:   "specs",
		Short: "Create and inspect the saved stimulus specs",
	}
	specsCmd.AddCommand(newSpecsNewCmd())
	specsCmd.AddCommand(newSpecsListCmd())
	specsCmd.AddCommand(newSpecsShowCmd())
	specsCmd.AddCommand(newSpecsWatchCmd())
	return specsCmd
}

// -- specs new --

// specBinder binds flags straight onto a spec's fields and checks them after
// parsing.
type specBinder struct {
	kind   stimulus.Kind
	ints   []boundInt
	colors []colorFlag
	keys   []keyFlag
}

type boundInt struct {
	flag, field string
	dst         *int
}

type colorFlag struct {
	flag string
	text *string
	dst  *stimulus.Color
}

type keyFlag struct {
	flag string
	text *string
	dst  *stimulus.Key
}

func (b *specBinder) intVar(fs *pflag.FlagSet, dst *int, flag, field, usage string) {
	fs.IntVar(dst, flag, *dst, usage)
	b.ints = append(b.ints, boundInt{flag: flag, field: field, dst: dst})
}

func (b *specBinder) colorVar(fs *pflag.FlagSet, dst *stimulus.Color, flag, usage string) {
	text := new(string)
	fs.StringVar(text, flag, dst.Hex(), usage+" (name or #rrggbb[aa])")
	b.colors = append(b.colors, colorFlag{flag: flag, text: text, dst: dst})
}

func (b *specBinder) keyVar(fs *pflag.FlagSet, dst *stimulus.Key, flag, usage string) {
	text := new(string)
	fs.StringVar(text, flag, dst.String(), usage)
	b.keys = append(b.keys, keyFlag{flag: flag, text: text, dst: dst})
}

func (b *specBinder) common(fs *pflag.FlagSet, c *stimulus.Common) {
	b.intVar(fs, &c.FrameRate, "fps", stimulus.FieldFPS, "Frames per second")
	b.intVar(fs, &c.DurationSeconds, "duration", stimulus.FieldDuration, "Seconds per repetition")
	fs.IntVar(&c.RepetitionCount, "repetitions", c.RepetitionCount, "Extra repetitions after the first one")
	b.intVar(fs, &c.RandomSeed, "seed", stimulus.FieldRandomSeed, "Random seed")
	b.keyVar(fs, &c.SkipKey, "skip-key", "Key that ends the run early")
	b.colorVar(fs, &c.Background, "background", "Background color")
	fs.BoolVar(&c.RegenerateEveryFrame, "regenerate-every-frame", c.RegenerateEveryFrame, "Redraw the random state on every frame")
}

// apply parses the text flags and checks every bounded integer.
func (b *specBinder) apply() error {
	for _, f := range b.ints {
		if err := stimulus.CheckBound(b.kind, f.field, *f.dst); err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
	}
	for _, f := range b.colors {
		c, err := stimulus.ParseColor(*f.text)
		if err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
		*f.dst = c
	}
	for _, f := range b.keys {
		k, err := stimulus.ParseKey(*f.text)
		if err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
		*f.dst = k
	}
	return nil
}

func newSpecsNewCmd() *cobra.Command {
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a spec from defaults and flags and save it to the library",
	}

	fixing := stimulus.NewFixing()
	newCmd.AddCommand(newVariantCmd("fixing", "A fixation sign at a fixed position", fixing,
		func(fs *pflag.FlagSet, b *specBinder) {
			fs.StringVar(&fixing.Sign, "sign", fixing.Sign, "Text drawn at the fixation point")
			b.intVar(fs, &fixing.FontSize, "font-size", stimulus.FieldFontSize, "Font size in pixels")
			b.intVar(fs, &fixing.CenterX, "center-x", stimulus.FieldCenterX, "Horizontal position in pixels")
			b.intVar(fs, &fixing.CenterY, "center-y", stimulus.FieldCenterY, "Vertical position in pixels")
			b.colorVar(fs, &fixing.Color, "color", "Sign color")
		}))

	circles := stimulus.NewRandomCircles()
	newCmd.AddCommand(newVariantCmd("circles", "Random dots scattered over a ring", circles,
		func(fs *pflag.FlagSet, b *specBinder) {
			b.intVar(fs, &circles.Count, "count", stimulus.FieldCount, "Number of dots")
			b.intVar(fs, &circles.DotSize, "dot-size", stimulus.FieldDotSize, "Dot radius in pixels")
			b.intVar(fs, &circles.InnerRadius, "inner-radius", stimulus.FieldInnerRadius, "Inner ring radius in pixels")
			b.intVar(fs, &circles.OuterRadius, "outer-radius", stimulus.FieldOuterRadius, "Outer ring radius in pixels")
			b.colorVar(fs, &circles.Color, "color", "Dot color")
		}))

	words := stimulus.NewColoredWords()
	newCmd.AddCommand(newVariantCmd("words", "A color word drawn in a random color", words,
		func(fs *pflag.FlagSet, b *specBinder) {
			b.intVar(fs, &words.FontSize, "font-size", stimulus.FieldFontSize, "Font size in pixels")
		}))

	return newCmd
}

func newVariantCmd(use, short string, spec stimulus.Spec, bindVariant func(*pflag.FlagSet, *specBinder)) *cobra.Command {
	binder := &specBinder{kind: spec.Kind()}

	variantCmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := binder.apply(); err != nil {
				return err
			}
			if err := spec.Validate(); err != nil {
				return err
			}
			lib, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			addr, created, err := lib.Save(spec)
			if err != nil {
				return err
			}
			status := "created"
			if !created {
				status = "exists"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", addr, status, spec.Describe())
			return nil
		},
	}
	bindVariant(variantCmd.Flags(), binder)
	binder.common(variantCmd.Flags(), spec.Params())
	return variantCmd
}

// -- specs list --

func newSpecsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the specs in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			lib, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			result, err := lib.LoadAll()
			if err != nil {
				return err
			}
			printLoadResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)
			return nil
		},
	}
}

func printLoadResult(out, diag io.Writer, result *library.LoadResult) {
	for _, e := range result.Entries {
		fmt.Fprintf(out, "%s  %s\n", e.Address, e.Spec.Describe())
	}
	for _, d := range result.Skipped {
		fmt.Fprintf(diag, "skipped %s: %s: %s\n", d.Path, d.Kind, d.Detail)
	}
}

// -- specs show --

func newSpecsShowCmd() *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:   "show <address>",
		Short: "Print a spec's canonical document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			lib, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			entry, err := lib.Load(args[0])
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "json":
				data, err = library.Encode(entry.Spec)
			case "yaml":
				data, err = yaml.Marshal(entry.Spec.Document())
			default:
				return fmt.Errorf("unsupported format %q: want json or yaml", format)
			}
			if err != nil {
				return fmt.Errorf("failed to encode spec: %w", err)
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}
			for _, issue := range entry.Issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "defaulted %s: %s\n", issue.Field, issue.Reason)
			}
			return nil
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return showCmd
}

// -- specs watch --

func newSpecsWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the library contents every time the directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			lib, err := openLibrary(cfg)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			return lib.Watch(cmd.Context(), func(result *library.LoadResult) {
				logger.Info("Library changed",
					zap.Int("specs", len(result.Entries)),
					zap.Int("skipped", len(result.Skipped)))
				printLoadResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result)
			})
		},
	}
}
