package routing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Auth modes for an endpoint. Key-based endpoints carry their connection
// string; identity-based endpoints authenticate through a role assignment
// that must exist before a route can target them.
const (
	AuthModeKey      = "keyBased"
	AuthModeIdentity = "identityBased"
)

// Endpoint is a message destination within the fabric.
type Endpoint struct {
	ID               string
	Name             string
	EntityPath       string
	AuthMode         string
	ConnectionString string
}

// Assignment grants a principal a role over a scope. Routes targeting
// identity endpoints require one whose scope covers the endpoint.
type Assignment struct {
	ID          string
	PrincipalID string
	Role        string
	Scope       string
}

// Route forwards messages from a source matching a condition to a set of
// endpoints. An empty source matches messages from any source.
type Route struct {
	ID            string
	Name          string
	Source        string
	Condition     string
	EndpointNames []string
}

// Fabric is an in-memory message routing control plane. It validates the
// same referential rules a hosted one would: unique names, complete auth
// configuration, and no routes to endpoints that cannot authenticate.
type Fabric struct {
	mu          sync.Mutex
	endpoints   map[string]*Endpoint
	assignments map[string]*Assignment
	routes      map[string]*Route
}

// NewFabric returns an empty fabric.
func NewFabric() *Fabric {
	return &Fabric{
		endpoints:   make(map[string]*Endpoint),
		assignments: make(map[string]*Assignment),
		routes:      make(map[string]*Route),
	}
}

// CreateEndpoint registers an endpoint and assigns its ID. Key endpoints
// must carry a connection string; identity endpoints must not.
func (f *Fabric) CreateEndpoint(ep Endpoint) (*Endpoint, error) {
	if err := validateEndpoint(&ep); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.endpoints {
		if existing.Name == ep.Name {
			return nil, fmt.Errorf("endpoint %q already exists", ep.Name)
		}
	}
	ep.ID = uuid.NewString()
	f.endpoints[ep.ID] = &ep
	return &ep, nil
}

// UpdateEndpoint replaces an endpoint's settings in place.
func (f *Fabric) UpdateEndpoint(id string, ep Endpoint) (*Endpoint, error) {
	if err := validateEndpoint(&ep); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint %s not found", id)
	}
	for _, other := range f.endpoints {
		if other.ID != id && other.Name == ep.Name {
			return nil, fmt.Errorf("endpoint %q already exists", ep.Name)
		}
	}
	ep.ID = existing.ID
	f.endpoints[id] = &ep
	return &ep, nil
}

// DeleteEndpoint removes an endpoint. Routes still targeting it block the
// delete; dependency-ordered teardown removes routes first.
func (f *Fabric) DeleteEndpoint(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep, ok := f.endpoints[id]
	if !ok {
		return nil
	}
	for _, route := range f.routes {
		for _, name := range route.EndpointNames {
			if name == ep.Name {
				return fmt.Errorf("endpoint %q is still targeted by route %q", ep.Name, route.Name)
			}
		}
	}
	delete(f.endpoints, id)
	return nil
}

// EndpointByName looks an endpoint up by its unique name.
func (f *Fabric) EndpointByName(name string) (*Endpoint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ep := range f.endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return nil, false
}

// CreateAssignment records a role assignment.
func (f *Fabric) CreateAssignment(as Assignment) (*Assignment, error) {
	if as.PrincipalID == "" || as.Role == "" || as.Scope == "" {
		return nil, fmt.Errorf("role assignment requires principal_id, role_definition_name, and scope")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	as.ID = uuid.NewString()
	f.assignments[as.ID] = &as
	return &as, nil
}

// DeleteAssignment removes a role assignment.
func (f *Fabric) DeleteAssignment(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assignments, id)
	return nil
}

// CreateRoute registers a route after verifying every target endpoint
// exists and, for identity endpoints, that a role assignment covers it.
// The verification at create time is what makes declaring the assignment a
// dependency of the route load-bearing rather than decorative.
func (f *Fabric) CreateRoute(route Route) (*Route, error) {
	if route.Name == "" {
		return nil, fmt.Errorf("route requires a name")
	}
	if len(route.EndpointNames) == 0 {
		return nil, fmt.Errorf("route %q targets no endpoints", route.Name)
	}
	if route.Condition == "" {
		route.Condition = "true"
	}
	if _, err := parseCondition(route.Condition); err != nil {
		return nil, fmt.Errorf("route %q: %w", route.Name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.routes {
		if existing.Name == route.Name {
			return nil, fmt.Errorf("route %q already exists", route.Name)
		}
	}
	for _, name := range route.EndpointNames {
		ep := f.endpointByNameLocked(name)
		if ep == nil {
			return nil, fmt.Errorf("route %q targets unknown endpoint %q", route.Name, name)
		}
		if ep.AuthMode == AuthModeIdentity && !f.scopeCoveredLocked(ep.Name) {
			return nil, fmt.Errorf("route %q targets identity endpoint %q with no role assignment in scope", route.Name, name)
		}
	}
	route.ID = uuid.NewString()
	f.routes[route.ID] = &route
	return &route, nil
}

// DeleteRoute removes a route.
func (f *Fabric) DeleteRoute(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.routes, id)
	return nil
}

// RouteMessage evaluates every route against a message's source and
// properties and returns the names of all matched target endpoints,
// deduplicated.
func (f *Fabric) RouteMessage(source string, properties map[string]string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[string]struct{})
	var targets []string
	for _, route := range f.routes {
		if route.Source != "" && route.Source != source {
			continue
		}
		cond, err := parseCondition(route.Condition)
		if err != nil {
			continue
		}
		if !cond.matches(properties) {
			continue
		}
		for _, name := range route.EndpointNames {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			targets = append(targets, name)
		}
	}
	return targets
}

func (f *Fabric) endpointByNameLocked(name string) *Endpoint {
	for _, ep := range f.endpoints {
		if ep.Name == name {
			return ep
		}
	}
	return nil
}

func (f *Fabric) scopeCoveredLocked(endpointName string) bool {
	for _, as := range f.assignments {
		if as.Scope == "*" || as.Scope == endpointName {
			return true
		}
	}
	return false
}

func validateEndpoint(ep *Endpoint) error {
	if ep.Name == "" {
		return fmt.Errorf("endpoint requires a name")
	}
	switch ep.AuthMode {
	case "":
		ep.AuthMode = AuthModeKey
	case AuthModeKey, AuthModeIdentity:
	default:
		return fmt.Errorf("endpoint %q: unknown auth_mode %q", ep.Name, ep.AuthMode)
	}
	if ep.AuthMode == AuthModeKey && ep.ConnectionString == "" {
		return fmt.Errorf("endpoint %q: key auth requires connection_string", ep.Name)
	}
	if ep.AuthMode == AuthModeIdentity && ep.ConnectionString != "" {
		return fmt.Errorf("endpoint %q: identity auth does not take a connection_string", ep.Name)
	}
	return nil
}

// condition is a parsed routing condition: the literal "true", or one or
// more `property = "value"` clauses joined by " and ".
type condition struct {
	clauses [][2]string
}

func parseCondition(raw string) (*condition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "true" {
		return &condition{}, nil
	}
	cond := &condition{}
	for _, clause := range strings.Split(raw, " and ") {
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid condition clause %q", clause)
		}
		prop := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if prop == "" || len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
			return nil, fmt.Errorf("invalid condition clause %q", clause)
		}
		cond.clauses = append(cond.clauses, [2]string{prop, value[1 : len(value)-1]})
	}
	return cond, nil
}

func (c *condition) matches(properties map[string]string) bool {
	for _, clause := range c.clauses {
		if properties[clause[0]] != clause[1] {
			return false
		}
	}
	return true
}
