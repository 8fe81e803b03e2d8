// Package catalog: статический список STT/LLM/TTS моделей для форм дашборда.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var raw []byte

type Kind string

const (
	KindSTT Kind = "stt"
	KindLLM Kind = "llm"
	KindTTS Kind = "tts"
)

type Option struct {
	Value       string `yaml:"value" json:"value"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type Category struct {
	Category string   `yaml:"category" json:"category"`
	Options  []Option `yaml:"options" json:"options"`
}

type Defaults struct {
	STT          string `yaml:"stt" json:"stt"`
	LLM          string `yaml:"llm" json:"llm"`
	TTS          string `yaml:"tts" json:"tts"`
	Instructions string `yaml:"instructions" json:"instructions"`
}

type Provider struct {
	Name        string   `yaml:"name" json:"name"`
	EnvKey      string   `yaml:"envKey" json:"envKey"`
	Models      []string `yaml:"models" json:"models"`
	Description string   `yaml:"description" json:"description"`
}

type Catalog struct {
	STT       []Category          `yaml:"stt" json:"stt"`
	LLM       []Category          `yaml:"llm" json:"llm"`
	TTS       []Category          `yaml:"tts" json:"tts"`
	Defaults  Defaults            `yaml:"defaults" json:"defaults"`
	Providers map[Kind][]Provider `yaml:"providers" json:"providers"`
}

var (
	once sync.Once
	def  *Catalog
)

// Default: каталог из встроенного catalog.yaml.
func Default() *Catalog {
	once.Do(func() {
		c, err := Parse(raw)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded yaml: %v", err))
		}
		def = c
	})
	return def
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) categories(k Kind) []Category {
	switch k {
	case KindSTT:
		return c.STT
	case KindLLM:
		return c.LLM
	case KindTTS:
		return c.TTS
	}
	return nil
}

// Flatten: все опции вида подряд, для простых выпадающих списков.
func (c *Catalog) Flatten(k Kind) []Option {
	var out []Option
	for _, cat := range c.categories(k) {
		out = append(out, cat.Options...)
	}
	return out
}

func (c *Catalog) Lookup(k Kind, value string) (Option, bool) {
	for _, o := range c.Flatten(k) {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}
