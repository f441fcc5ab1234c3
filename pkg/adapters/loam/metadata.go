package loam

// ProtocolMetadata is the front matter of a protocol document.
// Steps stay loosely typed so Markdown, YAML and JSON documents decode the same way.
type ProtocolMetadata struct {
	ID          string `json:"id" mapstructure:"id" yaml:"id,omitempty"`
	Title       string `json:"title" mapstructure:"title" yaml:"title,omitempty"`
	Description string `json:"description" mapstructure:"description" yaml:"description,omitempty"`
	Duration    string `json:"duration" mapstructure:"duration" yaml:"duration,omitempty"`
	Difficulty  string `json:"difficulty" mapstructure:"difficulty" yaml:"difficulty,omitempty"`
	Focus       string `json:"focus" mapstructure:"focus" yaml:"focus,omitempty"`
	Steps       []any  `json:"steps" mapstructure:"steps" yaml:"steps,omitempty"`
}

// StepMetadata is one entry of ProtocolMetadata.Steps.
type StepMetadata struct {
	ID          string          `mapstructure:"id" yaml:"id,omitempty"`
	Title       string          `mapstructure:"title" yaml:"title,omitempty"`
	Description string          `mapstructure:"description" yaml:"description,omitempty"`
	Fields      []FieldMetadata `mapstructure:"fields" yaml:"fields,omitempty"`
}

// FieldMetadata describes one input. Keys accept either plain key names or
// {key, label, kind} maps.
type FieldMetadata struct {
	Name    string           `mapstructure:"name" yaml:"name,omitempty"`
	Label   string           `mapstructure:"label" yaml:"label,omitempty"`
	Kind    string           `mapstructure:"kind" yaml:"kind,omitempty"`
	Help    string           `mapstructure:"help" yaml:"help,omitempty"`
	Options []OptionMetadata `mapstructure:"options" yaml:"options,omitempty"`
	Keys    []any            `mapstructure:"keys" yaml:"keys,omitempty"`
	Other   *OtherMetadata   `mapstructure:"other" yaml:"other,omitempty"`
	Min     *int             `mapstructure:"min" yaml:"min,omitempty"`
	Max     *int             `mapstructure:"max" yaml:"max,omitempty"`
}

type OptionMetadata struct {
	ID          string `mapstructure:"id" yaml:"id,omitempty"`
	Label       string `mapstructure:"label" yaml:"label,omitempty"`
	Description string `mapstructure:"description" yaml:"description,omitempty"`
}

type KeyMetadata struct {
	Key   string `mapstructure:"key" yaml:"key,omitempty"`
	Label string `mapstructure:"label" yaml:"label,omitempty"`
	Kind  string `mapstructure:"kind" yaml:"kind,omitempty"`
}

type OtherMetadata struct {
	ValueKey string `mapstructure:"value_key" yaml:"value_key,omitempty"`
	LabelKey string `mapstructure:"label_key" yaml:"label_key,omitempty"`
	LabelRef string `mapstructure:"label_ref" yaml:"label_ref,omitempty"`
}
