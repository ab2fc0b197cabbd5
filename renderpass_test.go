package vkres

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vkres/hal"
)

func TestRenderPassKeyCompatibleIgnoresOps(t *testing.T) {
	a := simpleRenderPassDesc()
	b := a
	b.Color.LoadOp = gputypes.LoadOpLoad
	b.Color.StoreOp = gputypes.StoreOpDiscard

	if renderPassKey(a, false).Equal(renderPassKey(b, false)) {
		t.Error("full keys must distinguish load/store operations")
	}
	if !renderPassKey(a, true).Equal(renderPassKey(b, true)) {
		t.Error("compatible keys must ignore load/store operations")
	}
	if renderPassKey(a, false).Equal(renderPassKey(a, true)) {
		t.Error("full and compatible keys must never collide")
	}
}

func TestRenderPassKeyDistinguishesAttachments(t *testing.T) {
	color := RenderPassDesc{Color: hal.Attachment{Format: gputypes.TextureFormatRGBA8Unorm, SampleCount: 1}}

	depth := color
	depth.DepthStencil = hal.Attachment{Format: gputypes.TextureFormatDepth24PlusStencil8, SampleCount: 1}
	if renderPassKey(color, true).Equal(renderPassKey(depth, true)) {
		t.Error("an added depth attachment must change the key")
	}

	msaa := color
	msaa.Color.SampleCount = 4
	if renderPassKey(color, true).Equal(renderPassKey(msaa, true)) {
		t.Error("sample count must change the key")
	}
}
