package domain

// Planning holds the drafts of the current generation cycle and the merged result.
type Planning struct {
	Options []Itinerary `json:"planning_options"`
	Current *Itinerary  `json:"current_itinerary,omitempty"`
}

// Clone returns a deep copy.
func (p *Planning) Clone() *Planning {
	if p == nil {
		return nil
	}
	c := &Planning{Current: p.Current.Clone()}
	if p.Options != nil {
		c.Options = make([]Itinerary, len(p.Options))
		for i := range p.Options {
			c.Options[i] = *p.Options[i].Clone()
		}
	}
	return c
}
