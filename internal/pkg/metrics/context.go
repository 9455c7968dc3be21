package metrics

import "context"

// EndpointUnknown labels observations for requests whose route could not be
// resolved.
const EndpointUnknown = "unknown"

type endpointKey struct{}

// WithEndpoint stores the resolved endpoint of the current request so that
// deeper layers can label their observations with it.
func WithEndpoint(ctx context.Context, endpoint string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint)
}

// EndpointFromContext returns the endpoint stored by WithEndpoint, or
// EndpointUnknown when the context carries none.
func EndpointFromContext(ctx context.Context) string {
	if endpoint, ok := ctx.Value(endpointKey{}).(string); ok && endpoint != "" {
		return endpoint
	}
	return EndpointUnknown
}
