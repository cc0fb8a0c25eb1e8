package model

import "time"

// Category groups shows for browsing.
type Category string

const (
    CategoryMusical    Category = "MUSICAL"
    CategoryConcert    Category = "CONCERT"
    CategoryPlay       Category = "PLAY"
    CategoryClassic    Category = "CLASSIC"
    CategoryExhibition Category = "EXHIBITION"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
    switch c {
    case CategoryMusical, CategoryConcert, CategoryPlay, CategoryClassic, CategoryExhibition:
        return true
    }
    return false
}

// Show is a production playing at one venue on one or more dates.
//
// Prices maps every section label of the venue to the price of one seat in
// that section. Dates are UTC, whole seconds, ascending and unique;
// EarliestDate is always Dates[0].
type Show struct {
    ID           uint64
    Name         string
    Category     Category
    VenueID      uint64
    Detail       string
    Image        string
    Prices       map[string]int64
    Dates        []time.Time
    EarliestDate time.Time
    CreatedAt    time.Time
    UpdatedAt    time.Time
    DeletedAt    *time.Time
}

// HasDate reports whether t is one of the show's performance dates.
func (s Show) HasDate(t time.Time) bool {
    for _, d := range s.Dates {
        if d.Equal(t) {
            return true
        }
    }
    return false
}
