// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dxgi implements the legacy capture context on Direct3D 11 and
// DXGI desktop duplication.
//
// The duplication session, the captured frames and the staging textures
// live on a D3D11 device created on the default hardware adapter. COM
// objects are driven through their vtables with go-ole providing the
// IUnknown plumbing, GUIDs and HRESULT errors. A shared texture is a
// staging texture paired with an OS shared memory region: CopyResource
// copies the frame on the GPU, maps the staging texture and publishes the
// pixels to the region the primary context imports.
//
// The backend registers itself as "dxgi" on Windows. On other platforms the
// package only carries the HRESULT mapping.
package dxgi
