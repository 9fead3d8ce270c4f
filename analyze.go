package topictree

import (
	"fmt"
	"io"
)

// Counts holds the number of nodes on each level of a topic tree.
type Counts struct {
	MainTopics       int
	Subtopics        int
	CurriculumTopics int
	// FailedBranches is the number of nodes whose children could not be generated.
	FailedBranches int
}

// Analyze counts the nodes on each level of collection.
func Analyze(collection []Node) Counts {
	counts := Counts{MainTopics: len(collection)}
	for _, topic := range collection {
		if topic.GenerationError != "" {
			counts.FailedBranches++
		}
		counts.Subtopics += len(topic.Subcollections)
		for _, sub := range topic.Subcollections {
			if sub.GenerationError != "" {
				counts.FailedBranches++
			}
			counts.CurriculumTopics += len(sub.Subcollections)
		}
	}
	return counts
}

// WriteASCIITree writes the titles of collection as an indented tree.
func WriteASCIITree(w io.Writer, collection []Node) error {
	return writeASCIITree(w, collection, "")
}

func writeASCIITree(w io.Writer, nodes []Node, prefix string) error {
	for i, node := range nodes {
		last := i == len(nodes)-1

		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}

		if _, err := fmt.Fprintln(w, prefix+branch+node.Title); err != nil {
			return err
		}
		if err := writeASCIITree(w, node.Subcollections, prefix+indent); err != nil {
			return err
		}
	}
	return nil
}
