package journal

// Kind identifies the type of a registered variable.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindDouble
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindDouble:
		return "Double"
	case KindString:
		return "String"
	default:
		return "Unknown"
	}
}

const (
	// MaxVariables is the hard cap on distinct registered variables.
	// Resolved Open Question (spec.md §9): treated as a hard storage limit,
	// not merely a sanity ceiling.
	MaxVariables = 16 * 1024 * 1024

	minUnits     = 1e-9
	maxUnits     = 1e9
	defaultUnits = 0.001
)

// Descriptor is the immutable record produced by registration.
type Descriptor struct {
	ID      uint32
	Name    string
	Kind    Kind
	Units   float64 // meaningful only for KindDouble
	Initial any
}

// registry holds the name -> descriptor map, the alias table, and enforces
// the naming and cap rules from spec.md §4.2. It has no lifecycle
// awareness of its own; the Controller is responsible for only calling
// register* while Configuring.
type registry struct {
	byName  map[string]*Descriptor
	byID    map[uint32]*Descriptor
	aliases map[string]string // alias name -> target variable name
	nextID  uint32
	cap     int // MaxVariables in production; overridden by tests to avoid a 16Mi-entry map
}

func newRegistry() *registry {
	return &registry{
		byName:  make(map[string]*Descriptor),
		byID:    make(map[uint32]*Descriptor),
		aliases: make(map[string]string),
		nextID:  1,
		cap:     MaxVariables,
	}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

func clampUnits(units float64) float64 {
	if units == 0 {
		return defaultUnits
	}
	if units < minUnits {
		return minUnits
	}
	if units > maxUnits {
		return maxUnits
	}
	return units
}

func (r *registry) register(name string, kind Kind, units float64, initial any) (*Descriptor, error) {
	if !validName(name) {
		return nil, newErr(InvalidParam, "register", nil)
	}
	if _, exists := r.byName[name]; exists {
		return nil, newErr(DuplicateName, "register", nil)
	}
	if _, exists := r.aliases[name]; exists {
		return nil, newErr(DuplicateName, "register", nil)
	}
	if r.cap > 0 && len(r.byName) >= r.cap {
		return nil, newErr(TooManyVariables, "register", nil)
	}

	d := &Descriptor{
		ID:      r.nextID,
		Name:    name,
		Kind:    kind,
		Units:   units,
		Initial: initial,
	}
	r.nextID++
	r.byName[name] = d
	r.byID[d.ID] = d
	return d, nil
}

func (r *registry) registerAlias(alias, target string) error {
	if !validName(alias) {
		return newErr(InvalidParam, "registerAlias", nil)
	}
	if _, exists := r.byName[alias]; exists {
		return newErr(DuplicateName, "registerAlias", nil)
	}
	if _, exists := r.aliases[alias]; exists {
		return newErr(DuplicateName, "registerAlias", nil)
	}
	if _, exists := r.byName[target]; !exists {
		return newErr(UnknownVariable, "registerAlias", nil)
	}
	r.aliases[alias] = target
	return nil
}

// resolve follows at most one alias hop and returns the target descriptor.
func (r *registry) resolve(name string) (*Descriptor, error) {
	if target, ok := r.aliases[name]; ok {
		d, ok := r.byName[target]
		if !ok {
			return nil, newErr(UnknownAlias, "lookup", nil)
		}
		return d, nil
	}
	d, ok := r.byName[name]
	if !ok {
		return nil, newErr(UnknownVariable, "lookup", nil)
	}
	return d, nil
}

func (r *registry) byIDLookup(id uint32) (*Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, newErr(UnknownVariable, "lookup", nil)
	}
	return d, nil
}

func (r *registry) count() int { return len(r.byName) }
