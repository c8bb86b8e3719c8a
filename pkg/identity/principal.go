package identity

// Principal is the immutable result of a successful authentication.
//
// It carries the authenticated username, the names of the groups
// resolved for the user and the configured additional attributes that
// were present on the user document. Accessors return copies so callers
// cannot mutate a shared principal.
type Principal struct {
	name       string
	groups     []string
	properties map[string]string
}

// NewPrincipal creates a Principal, copying the group list and property
// map so later mutation of the inputs does not leak through.
func NewPrincipal(name string, groups []string, properties map[string]string) *Principal {
	p := &Principal{name: name}
	if len(groups) > 0 {
		p.groups = make([]string, len(groups))
		copy(p.groups, groups)
	}
	if len(properties) > 0 {
		p.properties = make(map[string]string, len(properties))
		for k, v := range properties {
			p.properties[k] = v
		}
	}
	return p
}

// Name returns the authenticated username.
func (p *Principal) Name() string {
	return p.name
}

// Groups returns a copy of the resolved group names.
func (p *Principal) Groups() []string {
	if len(p.groups) == 0 {
		return nil
	}
	out := make([]string, len(p.groups))
	copy(out, p.groups)
	return out
}

// Property returns the named attribute and whether it was resolved.
func (p *Principal) Property(name string) (string, bool) {
	v, ok := p.properties[name]
	return v, ok
}

// Properties returns a copy of the resolved attributes.
func (p *Principal) Properties() map[string]string {
	if len(p.properties) == 0 {
		return nil
	}
	out := make(map[string]string, len(p.properties))
	for k, v := range p.properties {
		out[k] = v
	}
	return out
}

// GroupPrincipal represents a single resolved group membership.
type GroupPrincipal string

// Name returns the group name.
func (g GroupPrincipal) Name() string {
	return string(g)
}
