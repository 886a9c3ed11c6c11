package weather

// Registry is a read-only, ordered table of supported cities.
type Registry struct {
	names  []string
	cities map[string]City
}

// NewRegistry builds a registry from cities in the given order. Later entries
// with a duplicate name replace earlier ones but keep the original position.
func NewRegistry(cities ...City) *Registry {
	r := &Registry{
		cities: make(map[string]City, len(cities)),
	}
	for _, c := range cities {
		if _, ok := r.cities[c.Name]; !ok {
			r.names = append(r.names, c.Name)
		}
		r.cities[c.Name] = c
	}
	return r
}

// DefaultRegistry returns the cities served by the gateway.
func DefaultRegistry() *Registry {
	return NewRegistry(
		City{Name: "Bologna", Coordinates: Coordinates{Lat: 44.467, Lon: 11.433}},
		City{Name: "Seattle", Coordinates: Coordinates{Lat: 47.606, Lon: -122.332}},
		City{Name: "Canberra", Coordinates: Coordinates{Lat: -35.283, Lon: 149.128}},
	)
}

// Lookup finds a city by its exact name. No case folding is applied.
func (r *Registry) Lookup(name string) (City, bool) {
	c, ok := r.cities[name]
	return c, ok
}

// Names returns the registered city names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports the number of registered cities.
func (r *Registry) Len() int {
	return len(r.names)
}
