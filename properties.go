package topictree

// IntendedEndUserRoleTeacher is the end user role stamped on every node.
const IntendedEndUserRoleTeacher = "http://w3id.org/openeduhub/vocabs/intendedEndUserRole/teacher"

// Properties is the metadata block attached to every node. Every field serializes as a list of
// strings, an empty list when unset.
type Properties struct {
	Keywords            []string `json:"cclom:general_keyword"`
	ShortTitle          []string `json:"ccm:collectionshorttitle"`
	EducationalContext  []string `json:"ccm:educationalcontext"`
	IntendedEndUserRole []string `json:"ccm:educationalintendedenduserrole"`
	TaxonID             []string `json:"ccm:taxonid"`
	Description         []string `json:"cm:description"`
	Title               []string `json:"cm:title"`
}

// NewProperties builds the metadata block of a node.
func NewProperties(title, shortTitle, description string, keywords []string) Properties {
	p := Properties{
		Keywords:            cloneStrings(keywords),
		ShortTitle:          []string{shortTitle},
		EducationalContext:  []string{},
		IntendedEndUserRole: []string{IntendedEndUserRoleTeacher},
		TaxonID:             []string{},
		Description:         []string{},
		Title:               []string{title},
	}
	if description != "" {
		p.Description = []string{description}
	}
	return p
}

// WithURIs returns a copy of p with the discipline and educational context URIs replaced.
func (p Properties) WithURIs(disciplines, contexts []string) Properties {
	p.TaxonID = cloneStrings(disciplines)
	p.EducationalContext = cloneStrings(contexts)
	return p
}

// normalizeNode rebuilds the properties of n and all its descendants from their titles, short
// titles, descriptions and keywords, stamping the request URIs on every level.
func normalizeNode(n Node, disciplines, contexts []string) Node {
	description := ""
	if len(n.Properties.Description) > 0 {
		description = n.Properties.Description[0]
	}

	out := Node{
		Title:           n.Title,
		ShortTitle:      n.ShortTitle,
		Properties:      NewProperties(n.Title, n.ShortTitle, description, n.Properties.Keywords).WithURIs(disciplines, contexts),
		Subcollections:  make([]Node, len(n.Subcollections)),
		GenerationError: n.GenerationError,
	}
	for i, child := range n.Subcollections {
		out.Subcollections[i] = normalizeNode(child, disciplines, contexts)
	}
	return out
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
