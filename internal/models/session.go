package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// InfoSession represents an information session listed on the home screen
type InfoSession struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Formation string `json:"formation" yaml:"formation"`
	IsFinish  Flag   `json:"isFinish" yaml:"is_finish"`
}

// Title returns the "<formation> - <name>" heading
func (s InfoSession) Title() string {
	return s.Formation + " - " + s.Name
}

// Event represents an event listed on the home screen
type Event struct {
	ID    int64         `json:"id" yaml:"id"`
	Name  LocalizedText `json:"name" yaml:"name"`
	Cover string        `json:"cover,omitempty" yaml:"cover,omitempty"`
	Date  string        `json:"date,omitempty" yaml:"date,omitempty"`
}

const maxTitleRunes = 20

// Title returns the localized event name, shortened for headers
func (e Event) Title(tag language.Tag) string {
	title := e.Name.For(tag)
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		return string(runes[:maxTitleRunes]) + "..."
	}
	return title
}

// LocalizedText holds either a plain string or a map of translations
type LocalizedText struct {
	Plain        string
	Translations map[string]string
}

var fallbackLocales = []string{"en", "fr", "ar"}

// For picks the translation best matching tag.
func (t LocalizedText) For(tag language.Tag) string {
	if len(t.Translations) == 0 {
		return t.Plain
	}
	keys := make([]string, 0, len(t.Translations))
	for k := range t.Translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	// Fallback order first so the matcher defaults to English.
	ordered := make([]string, 0, len(keys))
	for _, k := range fallbackLocales {
		if _, ok := t.Translations[k]; ok {
			ordered = append(ordered, k)
		}
	}
	for _, k := range keys {
		if !contains(ordered, k) {
			ordered = append(ordered, k)
		}
	}
	supported := make([]language.Tag, 0, len(ordered))
	for _, k := range ordered {
		supported = append(supported, language.Make(k))
	}
	_, index, confidence := language.NewMatcher(supported).Match(tag)
	if confidence == language.No {
		index = 0
	}
	return t.Translations[ordered[index]]
}

// String returns the English (or first fallback) text.
func (t LocalizedText) String() string {
	return t.For(language.English)
}

// UnmarshalJSON accepts either a JSON string or an object of translations.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*t = LocalizedText{}
		return nil
	}
	if data[0] == '"' {
		var plain string
		if err := json.Unmarshal(data, &plain); err != nil {
			return err
		}
		*t = LocalizedText{Plain: plain}
		return nil
	}
	var translations map[string]string
	if err := json.Unmarshal(data, &translations); err != nil {
		return fmt.Errorf("localized text: %w", err)
	}
	*t = LocalizedText{Translations: translations}
	return nil
}

// MarshalJSON mirrors the shape it was decoded from.
func (t LocalizedText) MarshalJSON() ([]byte, error) {
	if len(t.Translations) > 0 {
		return json.Marshal(t.Translations)
	}
	return json.Marshal(t.Plain)
}

// UnmarshalYAML accepts a scalar or a mapping, like the JSON form.
func (t *LocalizedText) UnmarshalYAML(unmarshal func(any) error) error {
	var plain string
	if err := unmarshal(&plain); err == nil {
		*t = LocalizedText{Plain: plain}
		return nil
	}
	var translations map[string]string
	if err := unmarshal(&translations); err != nil {
		return err
	}
	*t = LocalizedText{Translations: translations}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
