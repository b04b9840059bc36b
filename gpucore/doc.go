// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the backend-neutral ports of the mirror frame
// pipeline.
//
// The pipeline drives two graphics contexts at once:
//
//	               +--------------------+
//	               |   mirror.Pipeline  |
//	               +---------+----------+
//	                         |
//	         +---------------+---------------+
//	         |                               |
//	+--------v--------+             +--------v--------+
//	| primary context |  shared     | legacy context  |
//	|    (Backend)    |<--handle----|    (Legacy)     |
//	+--------+--------+             +--------+--------+
//	         |                               |
//	+--------v--------+             +--------v--------+
//	| backend/native  |             | backend/dxgi    |
//	| (gogpu/wgpu hal)|             | backend/screen  |
//	+-----------------+             +-----------------+
//
// The primary context renders: it owns the device, the submission queue,
// the command allocator, the swap chain and the fence. The legacy context
// captures: it owns the output duplication and creates the shared texture
// whose OS handle is imported by the primary context.
//
// # Resource States
//
// Back buffers move between [ResourceStatePresent] and
// [ResourceStateRenderTarget]. Callers record every transition explicitly
// with [CommandList.ResourceBarrier]; backends never infer them.
//
// # Errors
//
// Backends report the conditions the pipeline reacts to with the sentinel
// errors in this package ([ErrAccessLost], [ErrWaitTimeout],
// [ErrInvalidCall], [ErrDeviceLost]). Any other error is fatal to the frame.
package gpucore
