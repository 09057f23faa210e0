package core

// ReconcileKeys truncates or pads keys with empty strings so there is one key per URL.
func ReconcileKeys(urls, keys []string) []string {
	out := make([]string, len(urls))
	copy(out, keys)
	return out
}

// BuildBackends pairs URLs with keys by position.
func BuildBackends(urls, keys []string) []Backend {
	keys = ReconcileKeys(urls, keys)
	backends := make([]Backend, len(urls))
	for i, u := range urls {
		backends[i] = Backend{Index: i, BaseURL: u, APIKey: keys[i]}
	}
	return backends
}
