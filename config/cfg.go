package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// LayoutConfig is the pagination configuration surface. It is converted
	// to an immutable layout.Config per recompute - any change here
	// invalidates every derived page.
	LayoutConfig struct {
		FontPath      string        `yaml:"font_path" sanitize:"path_clean"`
		FontsDir      string        `yaml:"fonts_dir" sanitize:"path_clean"`
		FontSize      float64       `yaml:"font_size" validate:"gt=0,lte=72"`
		FontWeight    int           `yaml:"font_weight" validate:"min=100,max=900"`
		LineHeight    float64       `yaml:"line_height" validate:"gte=1.0,lte=3.0"`
		ScreenWidth   int           `yaml:"screen_width" validate:"min=100,max=4096"`
		ScreenHeight  int           `yaml:"screen_height" validate:"min=100,max=4096"`
		Orientation   Orientation   `yaml:"orientation" validate:"gte=0,lte=1"`
		MarginTop     int           `yaml:"margin_top" validate:"gte=0"`
		MarginBottom  int           `yaml:"margin_bottom" validate:"gte=0"`
		MarginLeft    int           `yaml:"margin_left" validate:"gte=0"`
		MarginRight   int           `yaml:"margin_right" validate:"gte=0"`
		TopPadding    int           `yaml:"top_padding" validate:"gte=0"`
		BottomPadding int           `yaml:"bottom_padding" validate:"gte=0"`
		Alignment     AlignmentMode `yaml:"alignment" validate:"gte=0,lte=1"`
	}

	TOCConfig struct {
		Generate       bool     `yaml:"generate"`
		Title          string   `yaml:"title" validate:"required_unless=Generate false"`
		HiddenChapters []string `yaml:"hidden_chapters"`
	}

	DocumentConfig struct {
		OutputNameTemplate    string       `yaml:"output_name_template"`
		FileNameTransliterate bool         `yaml:"file_name_transliterate"`
		InsertSoftHyphen      bool         `yaml:"insert_soft_hyphen"`
		Layout                LayoutConfig `yaml:"layout"`
		TOC                   TOCConfig    `yaml:"toc"`
	}

	Config struct {
		Version  int            `yaml:"version" validate:"eq=1"`
		Document DocumentConfig `yaml:"document"`
		Logging  LoggingConfig  `yaml:"logging"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
