package api

import "github.com/skeinworks/skein/provider"

// Model pairs a model identifier with the provider that can run it.
type Model interface {
	Name() string
	Provider() provider.Provider
}
