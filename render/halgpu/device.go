// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// ErrWaitTimeout is returned when the device does not go idle in time.
var ErrWaitTimeout = errors.New("halgpu: wait idle timed out")

// gpu is the set of device operations the backend uses. halDevice
// implements it on a real device; tests substitute a recorder.
type gpu interface {
	createTexture(desc *hal.TextureDescriptor) (hal.Texture, error)
	writeTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D)
	destroyTexture(t hal.Texture)

	createBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error)
	writeBuffer(b hal.Buffer, data []byte)
	destroyBuffer(b hal.Buffer)

	createShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error)
	destroyShaderModule(m hal.ShaderModule)

	waitIdle(timeout time.Duration) error
}

// halDevice forwards to a hal device and its queue.
type halDevice struct {
	device hal.Device
	queue  hal.Queue
}

func (d *halDevice) createTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	return d.device.CreateTexture(desc)
}

func (d *halDevice) writeTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) {
	d.queue.WriteTexture(dst, data, layout, size)
}

func (d *halDevice) destroyTexture(t hal.Texture) {
	d.device.DestroyTexture(t)
}

func (d *halDevice) createBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	return d.device.CreateBuffer(desc)
}

func (d *halDevice) writeBuffer(b hal.Buffer, data []byte) {
	d.queue.WriteBuffer(b, 0, data)
}

func (d *halDevice) destroyBuffer(b hal.Buffer) {
	d.device.DestroyBuffer(b)
}

func (d *halDevice) createShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	return d.device.CreateShaderModule(desc)
}

func (d *halDevice) destroyShaderModule(m hal.ShaderModule) {
	d.device.DestroyShaderModule(m)
}

// waitIdle submits an empty batch with a fence and waits for it to signal.
func (d *halDevice) waitIdle(timeout time.Duration) error {
	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("halgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(nil, fence, 1); err != nil {
		return fmt.Errorf("halgpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, timeout)
	if err != nil {
		return fmt.Errorf("halgpu: wait: %w", err)
	}
	if !ok {
		return ErrWaitTimeout
	}
	return nil
}
