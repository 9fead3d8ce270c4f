package topictree_test

import (
	"strings"
	"testing"

	topictree "github.com/MegaGrindStone/go-topic-tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainTopicsPrompt(t *testing.T) {
	tests := []struct {
		name        string
		general     bool
		methodology bool
		want        []string
		notWant     []string
	}{
		{
			name:    "no special instructions",
			want:    []string{"Keine besonderen Anweisungen."},
			notWant: []string{"Allgemeines", "Methodik und Didaktik"},
		},
		{
			name:    "general topic",
			general: true,
			want:    []string{"1) Hauptthema 'Allgemeines' an erster Stelle"},
			notWant: []string{"Keine besonderen Anweisungen.", "Methodik und Didaktik"},
		},
		{
			name:        "methodology topic",
			methodology: true,
			want:        []string{"2) Hauptthema 'Methodik und Didaktik' an letzter Stelle"},
			notWant:     []string{"Keine besonderen Anweisungen.", "'Allgemeines'"},
		},
		{
			name:        "both",
			general:     true,
			methodology: true,
			want: []string{
				"1) Hauptthema 'Allgemeines' an erster Stelle\n2) Hauptthema 'Methodik und Didaktik' an letzter Stelle",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := topictree.MainTopicsPrompt("Physik", 7, nil, tt.general, tt.methodology)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(prompt, "Erstelle eine Liste von 7 Hauptthemen"))
			assert.Contains(t, prompt, `für das Thema "Physik".`)
			assert.Contains(t, prompt, "Keine Code-Fences, kein Markdown, nur reines JSON-Array.")
			assert.Contains(t, prompt, `"keywords": ["Schlagwort1", "Schlagwort2", "Schlagwort3"]`)
			assert.Contains(t, prompt, "WICHTIG:")
			for _, w := range tt.want {
				assert.Contains(t, prompt, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, prompt, nw)
			}
		})
	}
}

func TestMainTopicsPromptExistingTitles(t *testing.T) {
	prompt, err := topictree.MainTopicsPrompt("Physik", 3, []string{"Mechanik", "Optik"}, false, false)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Folgende Titel sind bereits vergeben: Mechanik, Optik")
}

func TestSubTopicsPrompt(t *testing.T) {
	prompt, err := topictree.SubTopicsPrompt("Physik", "Mechanik", 4)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt,
		"Erstelle eine Liste von 4 Unterthemen für das Hauptthema \"Mechanik\"\nim Kontext \"Physik\"."))
	assert.Contains(t, prompt, "Keine Code-Fences, kein Markdown, nur reines JSON-Array.")
	assert.Contains(t, prompt, `"title": "Name des Unterthemas"`)
}

func TestCurriculumTopicsPrompt(t *testing.T) {
	prompt, err := topictree.CurriculumTopicsPrompt("Physik", "Kinematik", 2)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prompt,
		"Erstelle eine Liste von 2 Lehrplanthemen für das Unterthema \"Kinematik\"\nim Kontext \"Physik\"."))
	assert.Contains(t, prompt, "Keine Code-Fences, kein Markdown, nur reines JSON-Array.")
	assert.Contains(t, prompt, `"title": "Name des Lehrplanthemas"`)
}

func TestBaseInstructions(t *testing.T) {
	assert.True(t, strings.HasPrefix(topictree.BaseInstructions,
		"Du bist ein hilfreicher KI-Assistent für Lehr- und Lernsituationen."))
	assert.True(t, strings.HasSuffix(topictree.BaseInstructions, "Verwende niemals doppelte title-Werte.\n"))
	for _, section := range []string{"1) **TITEL**", "2) **KURZTITEL**", "3) **BESCHREIBUNG**", "4) **HIERARCHIE**",
		"5) **FÄCHERFAMILIE (automatisch)**", "7) **ANZAHL DER KATEGORIEN**"} {
		assert.Contains(t, topictree.BaseInstructions, section)
	}
}
