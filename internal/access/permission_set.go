package access

import (
	"sort"

	"github.com/ssiitsupport/SSI360V2/internal/model"
)

// PermissionSet is the de-duplicated set of permissions a user holds, keyed by "Resource:Action"
type PermissionSet map[string]model.Permission

func newPermissionSet(perms []model.Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p.Key()] = p
	}
	return set
}

// Has reports whether the set grants action on resource
func (s PermissionSet) Has(resource, action string) bool {
	_, ok := s[model.PermissionKey(resource, action)]
	return ok
}

// Keys returns the sorted "Resource:Action" keys
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Names returns the sorted display names
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	seen := make(map[string]bool, len(s))
	for _, p := range s {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// List returns the permissions ordered by key
func (s PermissionSet) List() []model.Permission {
	out := make([]model.Permission, 0, len(s))
	for _, k := range s.Keys() {
		out = append(out, s[k])
	}
	return out
}
