package model

import "time"

// Section is one priced area of a venue. Seats inside a section are numbered
// 1..Capacity.
type Section struct {
    Label    string `json:"label"`
    Capacity int    `json:"capacity"`
}

// Venue is a physical place hosting shows. Sections keep their declared
// order; labels are unique within a venue.
type Venue struct {
    ID        uint64
    Name      string
    Address   string
    Image     string
    Sections  []Section
    CreatedAt time.Time
    DeletedAt *time.Time
}

// Section looks up a section by label.
func (v Venue) Section(label string) (Section, bool) {
    for _, s := range v.Sections {
        if s.Label == label {
            return s, true
        }
    }
    return Section{}, false
}

// SectionLabels returns the labels in declaration order.
func (v Venue) SectionLabels() []string {
    out := make([]string, 0, len(v.Sections))
    for _, s := range v.Sections {
        out = append(out, s.Label)
    }
    return out
}
