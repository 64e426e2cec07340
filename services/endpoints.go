package services

import (
	"fmt"

	"github.com/ljmarquez/latch/core"
)

// BaseEndpoints returns framework-agnostic endpoint specifications for
// all core authentication endpoints.
//
// Adapters map each OperationID to their own framework-specific handler,
// so multiple adapters (Fiber, Gin, Echo) share one route table.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/sign-up",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "signUpWithEmailAndPassword",
				Description: "Sign up an account using email and password",
			},
		},
		{
			Path:   "/sign-in",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "signInWithEmailAndPassword",
				Description: "Sign in an account using email and password",
			},
		},
		{
			Path:   "/oauth",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "signInWithProvider",
				Description: "Sign in or register using a verified provider assertion",
			},
		},
		{
			Path:   "/sign-out",
			Method: "POST",
			Auth:   true,
			Metadata: core.EndpointMetadata{
				OperationID: "signOut",
				Description: "Sign out the current session",
			},
		},
		{
			Path:   "/sign-out-all",
			Method: "POST",
			Auth:   true,
			Metadata: core.EndpointMetadata{
				OperationID: "signOutAll",
				Description: "Sign out every session of the current account",
			},
		},
		{
			Path:   "/session",
			Method: "GET",
			Auth:   true,
			Metadata: core.EndpointMetadata{
				OperationID: "getSession",
				Description: "Get the current account's session data",
			},
		},
		{
			Path:   "/set-password",
			Method: "POST",
			Auth:   true,
			Metadata: core.EndpointMetadata{
				OperationID: "setPassword",
				Description: "Choose a first password for an OAuth-origin account",
			},
		},
		{
			Path:   "/change-password",
			Method: "POST",
			Auth:   true,
			Metadata: core.EndpointMetadata{
				OperationID: "changePassword",
				Description: "Change the password after verifying the current one",
			},
		},
		{
			Path:   "/forgot-password",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "forgotPassword",
				Description: "Request a password reset token",
			},
		},
		{
			Path:   "/reset-password",
			Method: "POST",
			Metadata: core.EndpointMetadata{
				OperationID: "resetPassword",
				Description: "Reset the password with a single-use token",
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
//
// It starts with the base authentication endpoints and supports
// registration of additional plugin endpoints.
type EndpointRegistry struct {
	// endpoints stores all registered endpoints keyed by "METHOD:PATH"
	endpoints map[string]*core.Endpoint
	order     []string
}

// NewEndpointRegistry creates a new registry with all base
// authentication endpoints pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		reg.register(&base[i])
	}

	return reg
}

// register adds a single endpoint to the registry with conflict
// detection.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	key := fmt.Sprintf("%s:%s", ep.Method, ep.Path)

	if _, exists := r.endpoints[key]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[key] = ep
	r.order = append(r.order, key)
	return nil
}

// RegisterPlugin registers additional plugin endpoints to the registry.
// If any endpoint conflicts, none of the plugin's endpoints are
// registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	for i := range endpoints {
		ep := &endpoints[i]
		key := fmt.Sprintf("%s:%s", ep.Method, ep.Path)

		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
	}

	seen := make(map[string]bool)
	for i := range endpoints {
		ep := &endpoints[i]
		key := fmt.Sprintf("%s:%s", ep.Method, ep.Path)

		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		if err := r.register(&endpoints[i]); err != nil {
			return err
		}
	}

	return nil
}

// Endpoints returns all registered endpoints in registration order.
func (r *EndpointRegistry) Endpoints() []core.Endpoint {
	result := make([]core.Endpoint, 0, len(r.endpoints))
	for _, key := range r.order {
		result = append(result, *r.endpoints[key])
	}
	return result
}
