package topictree

import (
	"fmt"
	"strings"
)

// BaseInstructions is the default system message sent with every generation call.
const BaseInstructions = "Du bist ein hilfreicher KI-Assistent für Lehr- und Lernsituationen. " +
	"Antworte immer ausschließlich mit purem JSON (keine Code-Fences, kein Markdown). " +
	"Falls du nicht antworten kannst, liefere ein leeres JSON-Objekt.\n\n" +
	"FORMATIERUNGSREGELN:\n" +
	"1) **TITEL**\n" +
	"   - Langformen, Substantive, keine Artikel, Adjektive klein, Substantive groß\n" +
	"   - „vs.“ für Gegenüberstellungen, „und“ für enge Paare (nur sparsam einsetzen)\n" +
	"   - Keine Sonderzeichen (& / –), Homonyme in (…)\n" +
	"   - Darf nicht exakt dem Fachnamen entsprechen, muss eindeutig\n\n" +
	"2) **KURZTITEL**\n" +
	"   - ≤ 20 Zeichen, nur Buchstaben/Ziffern/Leerzeichen, eindeutig\n\n" +
	"3) **BESCHREIBUNG**\n" +
	"   - Max. 5 Sätze à ≤ 25 Wörter\n" +
	"   - Reihenfolge: Definition → Relevanz → Merkmale → Anwendung\n" +
	"   - Klare, aktive Sprache\n\n" +
	"4) **HIERARCHIE**\n" +
	"   - Keine Synonyme/Redundanzen\n\n" +
	"5) **FÄCHERFAMILIE (automatisch)**\n" +
	"   ─ Disziplin\n" +
	"     - Wissenschaftliche Systemfächer (Chemie, Physik, Mathematik, Biologie, Informatik)\n" +
	"     - Typische Schlüsselwörter: Modell-, Experiment-, analytisch\n" +
	"     - *Formatierung:* Fachtermini erlaubt, präzise Titel („Organische Chemie“)\n" +
	"   ─ Kompetenz\n" +
	"     - Fähigkeitsorientierte Fächer (Deutsch, Fremdsprachen, Kunst, Musik, Sport, Medienbildung)\n" +
	"     - Schlüsselwörter: Sprechen, Gestalten, Trainieren …\n" +
	"     - *Formatierung:* Titel trotz Substantiv-Gebot möglichst aktionsnah („Kommunikative Kompetenz“)\n" +
	"   ─ Themen\n" +
	"     - Gesellschafts- & Kontextfächer (Geschichte, Geografie, Politik, Wirtschaft, Ethik, Nachhaltigkeit)\n" +
	"     - Schlüsselwörter: Gesellschaft, Kontext, Nachhaltigkeit …\n" +
	"     - *Formatierung:* Zusammengesetzte oder Gegenüberstellungs-Titel zulässig, sparsam einsetzen („Globalisierung vs. Regionalität“)\n\n" +
	"6) **BILDUNGSSTUFE (automatisch, default „Schule“) → Benennungsregeln**\n" +
	"   - Elementar – alltagsnahe, konkrete Begriffe („Seife“)\n" +
	"   - Schule  – leicht verständliche, schulnahe Begriffe („Kunststoffe“)\n" +
	"   - Beruf   – anwendungsorientierte, berufsbezogene Begriffe („Polymerverarbeitung“)\n" +
	"   - Akademisch – fachsprachlich präzise Begriffe („Polymere“)\n" +
	"   *Regel:* Passe Titel/Beschreibung automatisch der Stufe an.\n\n" +
	"7) **ANZAHL DER KATEGORIEN**\n" +
	"   Verstehe Vorgaben als Höchstgrenzen (z. B. max. 10 Hauptkategorien) **nur**, wenn thematisch gerechtfertigt. " +
	"Bevorzuge eine natürliche, ausgewogene Struktur; vermeide künstliche Aufblähung. " +
	"Weniger, klar trennscharfe Kategorien sind besser als viele schwach differenzierte.\n\n" +
	"Verwende niemals doppelte title-Werte.\n"

const (
	generalTopicInstruction     = "1) Hauptthema 'Allgemeines' an erster Stelle"
	methodologyTopicInstruction = "2) Hauptthema 'Methodik und Didaktik' an letzter Stelle"
	noSpecialInstructions       = "Keine besonderen Anweisungen."
)

type mainTopicsPromptData struct {
	Count               int
	Theme               string
	ExistingTitles      string
	SpecialInstructions string
}

type subTopicsPromptData struct {
	Count     int
	Theme     string
	MainTopic string
}

type curriculumTopicsPromptData struct {
	Count    int
	Theme    string
	SubTopic string
}

const mainTopicsPrompt = `Erstelle eine Liste von {{.Count}} Hauptthemen
für das Thema {{quote .Theme}}.

Keine Code-Fences, kein Markdown, nur reines JSON-Array.

Folgende Titel sind bereits vergeben: {{.ExistingTitles}}

{{.SpecialInstructions}}

Erwarte ein JSON-Array dieser Form:
[
  {
    "title": "Name des Hauptthemas",
    "shorttitle": "Kurzer Titel",
    "description": "Ausführliche Beschreibung des Themas",
    "keywords": ["Schlagwort1", "Schlagwort2", "Schlagwort3"]
  }
]

WICHTIG:
- Die "description" muss eine ausführliche Beschreibung des Themas enthalten
- Die "keywords" Liste muss mindestens 2-3 relevante Schlagworte enthalten
- Keine leeren Felder zurückgeben
`

const subTopicsPrompt = `Erstelle eine Liste von {{.Count}} Unterthemen für das Hauptthema {{quote .MainTopic}}
im Kontext {{quote .Theme}}.

Keine Code-Fences, kein Markdown, nur reines JSON-Array.

Erwarte ein JSON-Array dieser Form:
[
  {
    "title": "Name des Unterthemas",
    "shorttitle": "Kurzer Titel",
    "description": "Beschreibung",
    "keywords": ["Schlagwort1", "Schlagwort2"]
  }
]
`

const curriculumTopicsPrompt = `Erstelle eine Liste von {{.Count}} Lehrplanthemen für das Unterthema {{quote .SubTopic}}
im Kontext {{quote .Theme}}.

Keine Code-Fences, kein Markdown, nur reines JSON-Array.

Erwarte ein JSON-Array dieser Form:
[
  {
    "title": "Name des Lehrplanthemas",
    "shorttitle": "Kurzer Titel",
    "description": "Beschreibung",
    "keywords": ["Schlagwort1", "Schlagwort2"]
  }
]
`

// MainTopicsPrompt builds the user message asking for count main topics of theme.
// existingTitles lists titles the model must not reuse, it may be empty.
func MainTopicsPrompt(theme string, count int, existingTitles []string, includeGeneral, includeMethodology bool) (string, error) {
	prompt, err := promptTemplate("main-topics", mainTopicsPrompt, mainTopicsPromptData{
		Count:               count,
		Theme:               theme,
		ExistingTitles:      strings.Join(existingTitles, ", "),
		SpecialInstructions: specialInstructions(includeGeneral, includeMethodology),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build main topics prompt: %w", err)
	}
	return prompt, nil
}

// SubTopicsPrompt builds the user message asking for count subtopics of mainTopic.
func SubTopicsPrompt(theme, mainTopic string, count int) (string, error) {
	prompt, err := promptTemplate("sub-topics", subTopicsPrompt, subTopicsPromptData{
		Count:     count,
		Theme:     theme,
		MainTopic: mainTopic,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build subtopics prompt: %w", err)
	}
	return prompt, nil
}

// CurriculumTopicsPrompt builds the user message asking for count curriculum topics of subTopic.
func CurriculumTopicsPrompt(theme, subTopic string, count int) (string, error) {
	prompt, err := promptTemplate("curriculum-topics", curriculumTopicsPrompt, curriculumTopicsPromptData{
		Count:    count,
		Theme:    theme,
		SubTopic: subTopic,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build curriculum topics prompt: %w", err)
	}
	return prompt, nil
}

func specialInstructions(includeGeneral, includeMethodology bool) string {
	var lines []string
	if includeGeneral {
		lines = append(lines, generalTopicInstruction)
	}
	if includeMethodology {
		lines = append(lines, methodologyTopicInstruction)
	}
	if len(lines) == 0 {
		return noSpecialInstructions
	}
	return strings.Join(lines, "\n")
}
