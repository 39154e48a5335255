// Package knowledge provides the seed records that populate the document store.
package knowledge

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/nickcecere/lrag/internal/config"
	"github.com/nickcecere/lrag/internal/store"
)

const sourceWikipedia = "wikipedia"

// Default returns the built-in Formula 1 knowledge base.
func Default() []store.Record {
	return []store.Record{
		{
			Text:   "Formula 1 is the highest class of international racing for open-wheel single-seater formula racing cars sanctioned by the Fédération Internationale de l'Automobile (FIA). The F1 World Championship has been one of the premier forms of racing around the world since its inaugural season in 1950.",
			Source: sourceWikipedia,
		},
		{
			Text:   "George Russell is a British racing driver currently competing in Formula One for Mercedes. He previously raced for Williams from 2019 to 2021. Russell is known for his consistency and strong qualifying performances.",
			Source: sourceWikipedia,
		},
		{
			Text:   "Max Verstappen is a Dutch-Belgian racing driver competing in Formula One for Red Bull Racing. He is a three-time Formula One World Champion, winning the titles in 2021, 2022, and 2023. He is known for his aggressive driving style and exceptional racecraft.",
			Source: sourceWikipedia,
		},
		{
			Text:   "The Qatar Grand Prix is a Formula One motor race held at the Losail International Circuit in Qatar. The race has been controversial due to track conditions, extreme heat, and safety concerns regarding tire degradation and driver fatigue.",
			Source: sourceWikipedia,
		},
		{
			Text:   "Lewis Hamilton is a British racing driver competing in Formula One for Mercedes. He is a seven-time Formula One World Champion and is widely regarded as one of the greatest drivers in the sport's history.",
			Source: sourceWikipedia,
		},
		{
			Text:   "Red Bull Racing is an Austrian-British Formula One racing team. The team has been highly successful, winning multiple Constructors' Championships and Drivers' Championships with drivers like Sebastian Vettel and Max Verstappen.",
			Source: sourceWikipedia,
		},
		{
			Text:   "Mercedes-AMG Petronas Formula One Team is the works Mercedes Formula One team. The team has dominated the sport in recent years, winning eight consecutive Constructors' Championships from 2014 to 2021.",
			Source: sourceWikipedia,
		},
	}
}

// Demo returns the shorter passages used by the demo walkthrough.
func Demo() []store.Record {
	return []store.Record{
		{
			Text:   "Formula 1 is the highest class of international racing for open-wheel single-seater formula racing cars sanctioned by the Fédération Internationale de l'Automobile (FIA).",
			Source: sourceWikipedia,
		},
		{
			Text:   "George Russell is a British racing driver currently competing in Formula One for Mercedes. He previously raced for Williams from 2019 to 2021.",
			Source: sourceWikipedia,
		},
		{
			Text:   "Max Verstappen is a Dutch-Belgian racing driver competing in Formula One for Red Bull Racing. He is a three-time Formula One World Champion.",
			Source: sourceWikipedia,
		},
		{
			Text:   "The Qatar Grand Prix is a Formula One motor race held at the Losail International Circuit in Qatar. The race has been controversial due to track conditions and safety concerns.",
			Source: sourceWikipedia,
		},
	}
}

// DemoQuestions returns the questions asked by the demo walkthrough.
func DemoQuestions() []string {
	return []string{
		"What is Formula 1?",
		"Who is George Russell?",
		"Tell me about Max Verstappen",
		"What happened at Qatar 2024?",
	}
}

// LoadFile reads seed records from a yaml, json or toml file with a top-level
// "documents" list of {text, source} entries.
func LoadFile(path string) ([]store.Record, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var records []store.Record
	if err := v.UnmarshalKey("documents", &records); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, r := range records {
		if strings.TrimSpace(r.Text) == "" {
			return nil, fmt.Errorf("seed file %s: document %d has no text", path, i)
		}
	}

	log.Debug("Loaded seed file", "file", path, "documents", len(records))
	return records, nil
}

// Seed collects the startup records: inline config documents, then the seed
// file. The built-in knowledge base is used only when both are empty and
// seed.builtin is enabled.
func Seed(cfg *config.Config) ([]store.Record, error) {
	records := make([]store.Record, 0, len(cfg.Seed.Documents))
	for _, d := range cfg.Seed.Documents {
		records = append(records, store.Record{Text: d.Text, Source: d.Source})
	}

	if cfg.Seed.File != "" {
		fromFile, err := LoadFile(cfg.Seed.File)
		if err != nil {
			return nil, err
		}
		records = append(records, fromFile...)
	}

	if len(records) == 0 && cfg.Seed.Builtin {
		return Default(), nil
	}

	return records, nil
}
