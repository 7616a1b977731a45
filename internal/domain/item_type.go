package domain

import (
	"encoding/json"
	"strings"
)

// ItemType is the kind of a module item as reported by Canvas.
type ItemType int

const (
	ItemOther ItemType = iota
	ItemPage
	ItemAssignment
	ItemQuiz
	ItemFile
	ItemDiscussion
	ItemExternalURL
	ItemSubHeader
)

var itemTypeNames = map[ItemType]string{
	ItemOther:       "Other",
	ItemPage:        "Page",
	ItemAssignment:  "Assignment",
	ItemQuiz:        "Quiz",
	ItemFile:        "File",
	ItemDiscussion:  "Discussion",
	ItemExternalURL: "ExternalUrl",
	ItemSubHeader:   "SubHeader",
}

// ParseItemType maps a Canvas type string to an ItemType.
// Unknown kinds (ExternalTool, future additions) become ItemOther.
func ParseItemType(s string) ItemType {
	s = strings.TrimSpace(s)
	for t, name := range itemTypeNames {
		if strings.EqualFold(name, s) {
			return t
		}
	}
	return ItemOther
}

func (t ItemType) String() string {
	if name, ok := itemTypeNames[t]; ok {
		return name
	}
	return itemTypeNames[ItemOther]
}

// Navigable reports whether items of this type point somewhere a user can open.
func (t ItemType) Navigable() bool {
	return t != ItemSubHeader
}

// UnmarshalJSON accepts the Canvas type string. null or a non-string value
// decodes to ItemOther instead of failing the whole page.
func (t *ItemType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = ItemOther
		return nil
	}
	*t = ParseItemType(s)
	return nil
}

func (t ItemType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
