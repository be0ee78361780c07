package adapters

type BuiltInAdapterType = string

const (
	HTTPAdapterType BuiltInAdapterType = "http"
)

// RegisterBuiltins registers all built-in fetchers by default
// or only the specific ones if keys are provided
func RegisterBuiltins(r *Registry, adapters ...BuiltInAdapterType) {
	if len(adapters) == 0 {
		// Include all built-in adapters here when adding implementations
		adapters = append(adapters, HTTPAdapterType)
	}

	for _, key := range adapters {
		switch key {
		case HTTPAdapterType:
			RegisterHTTP(r, NewHTTPFetcher(nil, nil))
		}
	}
}

// RegisterHTTP serves both http and https locators with f
func RegisterHTTP(r *Registry, f *HTTPFetcher) {
	r.Register("http", f)
	r.Register("https", f)
}
