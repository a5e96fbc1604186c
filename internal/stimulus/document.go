package stimulus

// Document field names. The spelling of several keys ("FPS", "outter_radius")
// is part of the on-disk format and must not change.
const (
	FieldType                 = "type"
	FieldSign                 = "sign"
	FieldFontSize             = "font_size"
	FieldCenterX              = "center_x"
	FieldCenterY              = "center_y"
	FieldColor                = "color"
	FieldCount                = "n"
	FieldDotSize              = "size"
	FieldInnerRadius          = "inner_radius"
	FieldOuterRadius          = "outter_radius"
	FieldFPS                  = "FPS"
	FieldDuration             = "duration"
	FieldRepetitions          = "repetitions"
	FieldRandomSeed           = "random_seed"
	FieldSkipKey              = "skip_key"
	FieldBackground           = "background"
	FieldRegenerateEveryFrame = "regenerate_every_frame"
)

// Document is the canonical serializable form of a spec. Implementations are
// plain structs whose field order defines the byte layout of the encoding.
type Document interface {
	Discriminator() Kind
}

// CommonDocument carries the shared trial parameters. It is embedded last in
// every variant document.
type CommonDocument struct {
	FPS                  int    `json:"FPS" yaml:"FPS"`
	Duration             int    `json:"duration" yaml:"duration"`
	Repetitions          int    `json:"repetitions" yaml:"repetitions"`
	RandomSeed           int    `json:"random_seed" yaml:"random_seed"`
	SkipKey              int    `json:"skip_key" yaml:"skip_key"`
	Background           string `json:"background" yaml:"background"`
	RegenerateEveryFrame bool   `json:"regenerate_every_frame" yaml:"regenerate_every_frame"`
}

// FixingDocument is the persisted form of a Fixing spec.
type FixingDocument struct {
	Type           Kind   `json:"type" yaml:"type"`
	Sign           string `json:"sign" yaml:"sign"`
	FontSize       int    `json:"font_size" yaml:"font_size"`
	CenterX        int    `json:"center_x" yaml:"center_x"`
	CenterY        int    `json:"center_y" yaml:"center_y"`
	Color          string `json:"color" yaml:"color"`
	CommonDocument `yaml:",inline"`
}

func (FixingDocument) Discriminator() Kind { return KindFixing }

// RandomCirclesDocument is the persisted form of a RandomCircles spec.
type RandomCirclesDocument struct {
	Type           Kind   `json:"type" yaml:"type"`
	Count          int    `json:"n" yaml:"n"`
	DotSize        int    `json:"size" yaml:"size"`
	InnerRadius    int    `json:"inner_radius" yaml:"inner_radius"`
	OuterRadius    int    `json:"outter_radius" yaml:"outter_radius"`
	Color          string `json:"color" yaml:"color"`
	CommonDocument `yaml:",inline"`
}

func (RandomCirclesDocument) Discriminator() Kind { return KindRandomCircles }

// ColoredWordsDocument is the persisted form of a ColoredWords spec. The
// palette is fixed and is not part of the document.
type ColoredWordsDocument struct {
	Type           Kind `json:"type" yaml:"type"`
	FontSize       int  `json:"font_size" yaml:"font_size"`
	CommonDocument `yaml:",inline"`
}

func (ColoredWordsDocument) Discriminator() Kind { return KindColoredWords }
