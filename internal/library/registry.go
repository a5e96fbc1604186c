package library

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// Decoder rebuilds a spec from a record's fields. Decoders must not fail:
// every field they read has a default.
type Decoder func(f *Fields) stimulus.Spec

// Registry maps a record's "type" discriminator to its decoder.
type Registry struct {
	mu       sync.RWMutex
	decoders map[stimulus.Kind]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[stimulus.Kind]Decoder)}
}

// DefaultRegistry returns a registry holding the decoders for every built-in
// variant.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, kind := range stimulus.Kinds() {
		r.MustRegister(kind, builtinDecoders[kind])
	}
	return r
}

var builtinDecoders = map[stimulus.Kind]Decoder{
	stimulus.KindFixing:        DecodeFixing,
	stimulus.KindRandomCircles: DecodeRandomCircles,
	stimulus.KindColoredWords:  DecodeColoredWords,
}

// Register adds a decoder. Registering the same kind twice is an error.
func (r *Registry) Register(kind stimulus.Kind, dec Decoder) error {
	if dec == nil {
		return fmt.Errorf("decoder for %s is nil", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.decoders[kind]; exists {
		return fmt.Errorf("decoder %s already registered", kind)
	}
	r.decoders[kind] = dec
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(kind stimulus.Kind, dec Decoder) {
	if err := r.Register(kind, dec); err != nil {
		panic(err)
	}
}

// Lookup returns the decoder for kind.
func (r *Registry) Lookup(kind stimulus.Kind) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dec, ok := r.decoders[kind]
	return dec, ok
}

// Kinds returns the registered discriminators in sorted order.
func (r *Registry) Kinds() []stimulus.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]stimulus.Kind, 0, len(r.decoders))
	for k := range r.decoders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// -- Built-in decoders --

// legacyCenterYKey is the key the Fixing decoder reads center_y from. Records
// store the value under center_y, so it always decodes to its default.
const legacyCenterYKey = "center_Y"

func decodeCommon(f *Fields, def stimulus.Common) stimulus.Common {
	return stimulus.Common{
		FrameRate:            f.Int(stimulus.FieldFPS, def.FrameRate),
		DurationSeconds:      f.Int(stimulus.FieldDuration, def.DurationSeconds),
		RepetitionCount:      f.Int(stimulus.FieldRepetitions, def.RepetitionCount),
		RandomSeed:           f.Int(stimulus.FieldRandomSeed, def.RandomSeed),
		SkipKey:              f.Key(stimulus.FieldSkipKey, def.SkipKey),
		Background:           f.Color(stimulus.FieldBackground, def.Background),
		RegenerateEveryFrame: f.Bool(stimulus.FieldRegenerateEveryFrame, def.RegenerateEveryFrame),
	}
}

func decoderCommon(duration int, regenerate bool) stimulus.Common {
	c := stimulus.DefaultCommon()
	c.DurationSeconds = duration
	c.RegenerateEveryFrame = regenerate
	return c
}

func DecodeFixing(f *Fields) stimulus.Spec {
	return &stimulus.Fixing{
		Sign:     f.String(stimulus.FieldSign, "+"),
		FontSize: f.Int(stimulus.FieldFontSize, 1),
		CenterX:  f.Int(stimulus.FieldCenterX, 1),
		CenterY:  f.Int(legacyCenterYKey, 1),
		Color:    f.Color(stimulus.FieldColor, stimulus.LightGray),
		Common:   decodeCommon(f, decoderCommon(5, false)),
	}
}

func DecodeRandomCircles(f *Fields) stimulus.Spec {
	return &stimulus.RandomCircles{
		Count:       f.Int(stimulus.FieldCount, 100),
		DotSize:     f.Int(stimulus.FieldDotSize, 5),
		InnerRadius: f.Int(stimulus.FieldInnerRadius, 100),
		OuterRadius: f.Int(stimulus.FieldOuterRadius, 120),
		Color:       f.Color(stimulus.FieldColor, stimulus.Black),
		Common:      decodeCommon(f, decoderCommon(30, true)),
	}
}

func DecodeColoredWords(f *Fields) stimulus.Spec {
	return &stimulus.ColoredWords{
		FontSize: f.Int(stimulus.FieldFontSize, 20),
		Common:   decodeCommon(f, decoderCommon(30, false)),
	}
}
