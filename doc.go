// Package vkres provides the resource caching and provisioning layer of a
// GPU rendering backend: descriptor sets, render passes, pipelines,
// samplers and buffers, created on demand and shared through a budgeted
// cache.
//
// # Overview
//
// A [ResourceProvider] sits between a command recorder and the native
// device binding ([hal.Device]). Recorders describe what they need with
// plain descriptions; the provider hands back ref-counted resources,
// reusing cached instances whenever the description matches one already
// built.
//
//	dev := vulkan.New(device, gpu, false)
//	rp := vkres.NewResourceProvider(dev, vkres.WithBudget(256<<20))
//	defer rp.Close()
//
//	ds, err := rp.FindOrCreateDescriptorSet(bindings)
//	if err != nil {
//	    return err
//	}
//	defer ds.Unref()
//
// # Ownership
//
// Every resource returned by a FindOrCreate or Create method carries one
// reference owned by the caller; release it with Unref. The shared cache
// holds its own reference, so a released resource stays resident until the
// budget pushes it out.
//
// # Caching tiers
//
// Render passes, samplers and format conversions are shareable: every
// holder gets the same instance. Descriptor sets are not: the provider
// allocates a pool of them per layout and hands each holder a set nobody
// else is writing. Fully written uniform descriptor sets are additionally
// cached by the identity of the buffers they bind, so repeated draws with
// the same uniforms cost no descriptor writes at all. Graphics pipelines
// are not cached; the driver pipeline cache absorbs recompilation.
//
// # Concurrency
//
// A provider has single-recorder affinity: call its methods from one
// goroutine at a time. Unref is safe from any goroutine.
//
// By default vkres produces no log output; see [SetLogger].
package vkres
