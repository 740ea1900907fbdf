package automation

import "encoding/json"

// Element is one entry of a page snapshot's accessibility tree. Ref is the
// opaque element handle used by Click and TypeText.
type Element struct {
	Ref       string `json:"ref"`
	Tag       string `json:"tag"`
	Text      string `json:"text"`
	ClassName string `json:"className"`
}

// Snapshot is a compact structured representation of a page's visible
// elements, used in place of full HTML to reduce payload size.
type Snapshot struct {
	Elements []Element `json:"elements"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
}

// Size reports the serialized byte size of the snapshot for cost accounting.
// Returns 0 for a nil snapshot.
func (s *Snapshot) Size() int {
	if s == nil {
		return 0
	}
	data, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	return len(data)
}
