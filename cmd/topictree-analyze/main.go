package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	topictree "github.com/MegaGrindStone/go-topic-tree"
)

const defaultFile = "topic_tree_result.json"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Analysiert eine JSON-Datei mit einem Themenbaum.\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Verwendung: %s [datei]\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Standard: '%s'\n", defaultFile)
	}
	flag.Parse()

	filename := defaultFile
	if flag.NArg() > 0 {
		filename = flag.Arg(0)
	}

	if err := run(filename, os.Stdout); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(filename string, w io.Writer) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("Fehler: Die Datei '%s' wurde nicht gefunden.\n"+
				"Bitte stellen Sie sicher, dass die Datei existiert und der Pfad korrekt ist.", filename)
		}
		return fmt.Errorf("Fehler: Die Datei '%s' konnte nicht gelesen werden: %w", filename, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("Fehler: Die Datei '%s' enthält kein gültiges JSON.", filename)
	}

	raw, ok := doc["collection"]
	if !ok {
		return fmt.Errorf("Fehler: Der Schlüssel 'collection' wurde in der Datei '%s' nicht gefunden.", filename)
	}

	var collection []topictree.Node
	if err := json.Unmarshal(raw, &collection); err != nil {
		return fmt.Errorf("Fehler: Die Datei '%s' enthält kein gültiges JSON.", filename)
	}

	counts := topictree.Analyze(collection)

	fmt.Fprintf(w, "--- Analyse für: %s ---\n", filename)
	fmt.Fprintf(w, "Anzahl Hauptkategorien (Ebene 1): %d\n", counts.MainTopics)
	fmt.Fprintf(w, "Anzahl Unterkategorien (Ebene 2): %d\n", counts.Subtopics)
	fmt.Fprintf(w, "Anzahl Lehrplanthemen (Ebene 3): %d\n", counts.CurriculumTopics)
	if counts.FailedBranches > 0 {
		fmt.Fprintf(w, "Fehlgeschlagene Zweige: %d\n", counts.FailedBranches)
	}
	fmt.Fprint(w, "---------------------------------\n\n")

	fmt.Fprintln(w, "--- ASCII Themenbaum ---")
	if err := topictree.WriteASCIITree(w, collection); err != nil {
		return err
	}
	fmt.Fprintln(w, "------------------------")

	return nil
}
