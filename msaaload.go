package vkres

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vkres/hal"
)

// msaaLoadState tracks the lazy setup of the shared MSAA load objects.
// A failed attempt does not poison the provider; the next request retries.
type msaaLoadState uint8

const (
	msaaLoadUninitialized msaaLoadState = iota
	msaaLoadReady
	msaaLoadFailed
)

type msaaLoadEntry struct {
	key      string
	pipeline *GraphicsPipeline
}

// msaaLoadObjects holds the shader modules and pipeline layout shared by
// every MSAA load pipeline, plus the pipelines built so far. The set of
// attachment layouts in one program is tiny, so a linear list beats a map.
type msaaLoadObjects struct {
	state      msaaLoadState
	vertModule hal.ShaderModule
	fragModule hal.ShaderModule
	layout     hal.PipelineLayout
	pipelines  []msaaLoadEntry
}

// ensure builds the shared modules and layout on first use.
func (m *msaaLoadObjects) ensure(dev hal.Device) error {
	if m.state == msaaLoadReady {
		return nil
	}

	err := m.build(dev)
	if err != nil {
		m.state = msaaLoadFailed
		Logger().Warn("msaa load setup failed", "err", err)
		return err
	}
	m.state = msaaLoadReady
	return nil
}

func (m *msaaLoadObjects) build(dev hal.Device) error {
	vertSPIRV, err := compileWGSL(msaaLoadVertexWGSL)
	if err != nil {
		return err
	}
	fragSPIRV, err := compileWGSL(msaaLoadFragmentWGSL)
	if err != nil {
		return err
	}

	vertModule, err := dev.CreateShaderModule(vertSPIRV)
	if err != nil {
		return fmt.Errorf("vkres: create msaa load vertex module: %w", err)
	}
	fragModule, err := dev.CreateShaderModule(fragSPIRV)
	if err != nil {
		dev.DestroyShaderModule(vertModule)
		return fmt.Errorf("vkres: create msaa load fragment module: %w", err)
	}

	setLayout, err := dev.CreateDescriptorSetLayout([]hal.DescriptorSetLayoutBinding{
		{Binding: 0, Type: hal.DescriptorTypeTexture, Count: 1},
	})
	if err != nil {
		dev.DestroyShaderModule(fragModule)
		dev.DestroyShaderModule(vertModule)
		return fmt.Errorf("vkres: create msaa load set layout: %w", err)
	}
	layout, err := dev.CreatePipelineLayout([]hal.DescriptorSetLayout{setLayout})
	dev.DestroyDescriptorSetLayout(setLayout)
	if err != nil {
		dev.DestroyShaderModule(fragModule)
		dev.DestroyShaderModule(vertModule)
		return fmt.Errorf("vkres: create msaa load pipeline layout: %w", err)
	}

	m.vertModule = vertModule
	m.fragModule = fragModule
	m.layout = layout
	return nil
}

// teardown releases the pipelines and destroys the shared objects.
func (m *msaaLoadObjects) teardown(dev hal.Device) {
	for _, e := range m.pipelines {
		e.pipeline.Unref()
	}
	m.pipelines = nil

	if m.layout != nil {
		dev.DestroyPipelineLayout(m.layout)
		m.layout = nil
	}
	if m.fragModule != nil {
		dev.DestroyShaderModule(m.fragModule)
		m.fragModule = nil
	}
	if m.vertModule != nil {
		dev.DestroyShaderModule(m.vertModule)
		m.vertModule = nil
	}
	m.state = msaaLoadUninitialized
}

// FindOrCreateLoadMSAAPipeline returns the pipeline that reloads a resolve
// texture into the MSAA attachment of a pass with the given attachment
// layout. One pipeline exists per layout; all of them share one layout and
// shader pair, built lazily on the first request. Release with Unref.
func (p *ResourceProvider) FindOrCreateLoadMSAAPipeline(desc RenderPassDesc) (*GraphicsPipeline, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if !desc.valid() {
		return nil, ErrInvalidRenderPass
	}

	key := renderPassKey(desc, true)
	canon := key.Canonical()
	for _, e := range p.msaa.pipelines {
		if e.key == canon {
			e.pipeline.Ref()
			return e.pipeline, nil
		}
	}

	if err := p.msaa.ensure(p.dev); err != nil {
		return nil, err
	}

	rp, err := p.findOrCreateRenderPassWithKey(desc, true, key)
	if err != nil {
		return nil, err
	}

	sampleCount := desc.Color.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}
	info := hal.GraphicsPipelineCreateInfo{
		Label:          "msaa-load",
		VertexShader:   p.msaa.vertModule,
		FragmentShader: p.msaa.fragModule,
		Layout:         p.msaa.layout,
		RenderPass:     rp.Handle(),
		SampleCount:    sampleCount,
		VertexStride:   8,
		VertexAttributes: []hal.VertexAttribute{
			{Location: 0, Format: gputypes.VertexFormatFloat32x2, Offset: 0},
		},
	}
	handle, err := p.dev.CreateGraphicsPipeline(info, p.pipelineCacheHandle())
	if err != nil {
		rp.Unref()
		return nil, fmt.Errorf("vkres: create msaa load pipeline: %w", err)
	}

	// The list holds one reference, the caller another. The shared layout
	// is owned by the provider, not the pipeline.
	gp := newGraphicsPipeline(p.dev, handle, p.msaa.layout, false, rp)
	gp.Ref()
	p.msaa.pipelines = append(p.msaa.pipelines, msaaLoadEntry{key: canon, pipeline: gp})
	return gp, nil
}
