package design

import (
	"fmt"

	"github.com/sublimart/studio/internal/canvas/area"
	"github.com/sublimart/studio/internal/canvas/element"
)

// Validate converts persisted elements and checks them against the factory
// rules and, when the product defines any, its customization areas.
// Unsupported element types are rejected on save even though the viewer
// would skip them.
func Validate(items []element.BackendElement, areas *area.Set) (element.List, error) {
	verr := &ValidationError{Elements: map[string][]string{}}
	seen := make(map[string]struct{}, len(items))

	list := make(element.List, 0, len(items))
	for i, be := range items {
		key := be.ID
		if key == "" {
			key = fmt.Sprintf("#%d", i)
		}
		el, err := element.FromBackend(be)
		if err != nil {
			verr.Elements[key] = append(verr.Elements[key], err.Error())
			continue
		}
		// Ids are unique across the whole design, group children included.
		if dup := claimIDs(seen, el); dup != "" {
			verr.Elements[key] = append(verr.Elements[key], "Duplicate element id: "+dup)
			continue
		}
		if res := element.Validate(el); !res.IsValid {
			verr.Elements[key] = append(verr.Elements[key], res.Errors...)
			continue
		}
		list = append(list, el)
	}

	if areas != nil && areas.Len() > 0 && len(verr.Elements) == 0 {
		if res := areas.ValidateDesign(list); !res.IsValid {
			verr.Areas = res.Errors
		}
	}
	if !verr.empty() {
		return nil, verr
	}
	return list, nil
}

// claimIDs records every id of el's subtree in seen and returns the first
// one that was already taken.
func claimIDs(seen map[string]struct{}, el element.Element) string {
	ids := element.SubtreeIDs(el)
	local := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		_, taken := seen[id]
		_, twice := local[id]
		if taken || twice {
			return id
		}
		local[id] = struct{}{}
	}
	for id := range local {
		seen[id] = struct{}{}
	}
	return ""
}
