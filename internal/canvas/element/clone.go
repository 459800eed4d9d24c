package element

// Clone returns a deep copy of e. Slices, crops and group children are
// never shared with the original.
func Clone(e Element) Element {
	switch v := e.(type) {
	case *Text:
		c := *v
		return &c
	case *Image:
		c := *v
		if v.Crop != nil {
			crop := *v.Crop
			c.Crop = &crop
		}
		if v.Filters != nil {
			c.Filters = append([]string(nil), v.Filters...)
		}
		return &c
	case *Shape:
		c := *v
		if v.Points != nil {
			c.Points = append([]float64(nil), v.Points...)
		}
		return &c
	case *Group:
		c := *v
		c.Children = nil
		if v.Children != nil {
			c.Children = make([]Element, len(v.Children))
			for i, child := range v.Children {
				c.Children[i] = Clone(child)
			}
		}
		return &c
	}
	return nil
}

// CloneList deep-copies every element of l.
func CloneList(l List) List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, e := range l {
		out[i] = Clone(e)
	}
	return out
}

// Find returns the element with the given id and its index in l.
// Only top-level elements are searched.
func (l List) Find(id string) (Element, int) {
	for i, e := range l {
		if e.Base().ID == id {
			return e, i
		}
	}
	return nil, -1
}

// IDs lists the top-level element ids in order.
func (l List) IDs() []string {
	ids := make([]string, len(l))
	for i, e := range l {
		ids[i] = e.Base().ID
	}
	return ids
}
