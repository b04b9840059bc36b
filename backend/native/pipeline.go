package native

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/mirror/gpucore"
)

//go:embed shaders/mirror.wgsl
var mirrorShaderSource string

// ShaderSource returns the WGSL source of the mirror pipeline.
func ShaderSource() string { return mirrorShaderSource }

// Bind group layout of the mirror pipeline.
const (
	uniformBinding = 0
	textureBinding = 1
	samplerBinding = 2
)

// vertexStride is the size of one gpucore.Vertex: position and UV.
const vertexStride = 16

// PipelineState is the compiled mirror pipeline with its layouts and the
// desktop sampler.
type PipelineState struct {
	dev *Device

	module      hal.ShaderModule
	groupLayout hal.BindGroupLayout
	layout      hal.PipelineLayout
	pipeline    hal.RenderPipeline
	sampler     hal.Sampler
	format      gputypes.TextureFormat
}

var _ gpucore.PipelineState = (*PipelineState)(nil)

// compileShader compiles WGSL to SPIR-V words.
func compileShader(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("native: compile shader: %w", err)
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}

// CreatePipelineState builds the mirror pipeline for the current swap
// chain format. Create the swap chain first.
func (d *Device) CreatePipelineState() (gpucore.PipelineState, error) {
	p := &PipelineState{dev: d, format: d.format}
	if err := p.build(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *PipelineState) build() error {
	dev := p.dev.device

	code, err := compileShader(mirrorShaderSource)
	if err != nil {
		return err
	}
	if p.module, err = dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mirror",
		Source: hal.ShaderSource{SPIRV: code},
	}); err != nil {
		return fmt.Errorf("native: create shader module: %w", err)
	}

	if p.groupLayout, err = dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mirror bindings",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    uniformBinding,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    textureBinding,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    samplerBinding,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	}); err != nil {
		return fmt.Errorf("native: create bind group layout: %w", err)
	}

	if p.layout, err = dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "mirror",
		BindGroupLayouts: []hal.BindGroupLayout{p.groupLayout},
	}); err != nil {
		return fmt.Errorf("native: create pipeline layout: %w", err)
	}

	if p.sampler, err = dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "desktop",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	}); err != nil {
		return fmt.Errorf("native: create sampler: %w", err)
	}

	blend := gputypes.BlendStatePremultiplied()
	if p.pipeline, err = dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "mirror",
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: vertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
				},
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    p.format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	}); err != nil {
		return fmt.Errorf("native: create render pipeline: %w", err)
	}
	return nil
}

// Destroy releases the pipeline objects in reverse creation order.
func (p *PipelineState) Destroy() {
	dev := p.dev.device
	if p.pipeline != nil {
		dev.DestroyRenderPipeline(p.pipeline)
	}
	if p.sampler != nil {
		dev.DestroySampler(p.sampler)
	}
	if p.layout != nil {
		dev.DestroyPipelineLayout(p.layout)
	}
	if p.groupLayout != nil {
		dev.DestroyBindGroupLayout(p.groupLayout)
	}
	if p.module != nil {
		dev.DestroyShaderModule(p.module)
	}
	*p = PipelineState{dev: p.dev}
}
