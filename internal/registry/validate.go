package registry

import (
	"fmt"
	"strings"

	"entity-harmonizer/internal/common"
	"entity-harmonizer/internal/diagnostic"
)

// Validate checks the registry structure. Errors make the registry
// unusable; warnings flag aliases that will shadow other entities.
func Validate(reg *Registry) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if reg == nil {
		res.AddError("registry_is_nil", "registry is nil", "", "")
		return res
	}

	names := make(map[string]string, len(reg.Entities))
	codes := make(map[string]string, len(reg.Entities))

	for i := range reg.Entities {
		e := &reg.Entities[i]

		if strings.TrimSpace(e.Name) == "" {
			res.AddError("empty_name", fmt.Sprintf("entity #%d has no name", i+1), "", e.Code)
			continue
		}

		key := common.FoldKey(e.Name)
		if prev, ok := names[key]; ok {
			res.AddError("duplicate_entity",
				fmt.Sprintf("entity name collides with %q", prev), e.Name, e.Name)
		} else {
			names[key] = e.Name
		}

		if !e.Type.IsValid() {
			res.AddError("invalid_type", fmt.Sprintf("unknown entity type %q", e.Type), e.Name, "")
		}

		if e.Code != "" {
			codeKey := common.FoldKey(e.Code)
			if prev, ok := codes[codeKey]; ok {
				res.AddError("duplicate_code",
					fmt.Sprintf("code %q already used by %q", e.Code, prev), e.Name, e.Code)
			} else {
				codes[codeKey] = e.Name
			}
		}
	}

	for i := range reg.Entities {
		e := &reg.Entities[i]
		seen := make(map[string]bool, len(e.Aliases))

		for _, alias := range e.Aliases {
			key := common.FoldKey(alias)
			if seen[key] {
				res.AddInfo("duplicate_alias", "alias listed twice", e.Name, alias)
				continue
			}

			seen[key] = true

			if owner, ok := names[key]; ok && owner != e.Name {
				res.AddWarning("alias_shadows_entity",
					fmt.Sprintf("alias is the canonical name of %q", owner), e.Name, alias, owner)
			}
		}
	}

	return res
}
