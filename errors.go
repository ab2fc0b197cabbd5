package vkres

import "errors"

// Sentinel errors returned by the resource provider. Driver failures are
// wrapped with fmt.Errorf("...: %w", err) so callers can match with
// errors.Is while still seeing the native error.
var (
	// ErrNoDescriptors is returned by FindOrCreateDescriptorSet when the
	// requested set has no bindings.
	ErrNoDescriptors = errors.New("vkres: descriptor set has no bindings")

	// ErrComputePipelinesUnsupported is returned by CreateComputePipeline.
	// The provider serves a rasterization backend and never builds compute
	// pipelines.
	ErrComputePipelinesUnsupported = errors.New("vkres: compute pipelines are not supported")

	// ErrInvalidYcbcrConversion is returned when a sampler or conversion
	// request carries conversion info that names no source format.
	ErrInvalidYcbcrConversion = errors.New("vkres: invalid ycbcr conversion info")

	// ErrInvalidRenderPass is returned when a render pass request describes
	// no attachments.
	ErrInvalidRenderPass = errors.New("vkres: render pass has no attachments")

	// ErrBindingTooLarge is returned when a uniform buffer binding exceeds
	// the device's maximum uniform buffer range.
	ErrBindingTooLarge = errors.New("vkres: uniform binding size exceeds device limit")

	// ErrProtectedMemoryUnsupported is returned when a provider serving a
	// protected context tries to allocate on a device without protected
	// memory support.
	ErrProtectedMemoryUnsupported = errors.New("vkres: device lacks protected memory support")

	// ErrProviderClosed is returned by operations on a closed provider.
	ErrProviderClosed = errors.New("vkres: provider is closed")
)
