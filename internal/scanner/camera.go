package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
)

const captureQuality = 80

var (
	ErrCameraInactive = errors.New("camera is not active")
	ErrStartCanceled  = errors.New("camera stopped while opening")
)

// Track is one media track of a stream.
type Track interface {
	Stop()
}

// MediaStream is a live video source.
type MediaStream interface {
	Tracks() []Track
	Frame() (image.Image, error)
}

// Constraints selects the camera to open.
type Constraints struct {
	FacingMode string
}

// MediaDevices opens camera streams.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (MediaStream, error)
}

// Camera owns at most one stream and stops its tracks exactly once, on
// capture, cancel or Close.
type Camera struct {
	devices MediaDevices

	mu     sync.Mutex
	stream MediaStream
	gen    uint64 // bumped by every Stop
}

func NewCamera(devices MediaDevices) *Camera {
	return &Camera{devices: devices}
}

// Start opens the rear camera. A stream already open is released first. If
// Stop is called while the device is still opening, the new stream is
// released as soon as it arrives and ErrStartCanceled is returned.
func (c *Camera) Start(ctx context.Context) error {
	if c.devices == nil {
		return errors.New("no media devices")
	}
	c.Stop()
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	stream, err := c.devices.GetUserMedia(ctx, Constraints{FacingMode: "environment"})
	if err != nil {
		return fmt.Errorf("get user media: %w", err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		stopTracks(stream)
		return ErrStartCanceled
	}
	prev := c.stream
	c.stream = stream
	c.mu.Unlock()
	if prev != nil {
		stopTracks(prev)
	}
	return nil
}

func (c *Camera) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Capture grabs the current frame as a JPEG and releases the stream, whether
// or not the frame could be read.
func (c *Camera) Capture() ([]byte, error) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return nil, ErrCameraInactive
	}
	defer c.Stop()

	frame, err := stream.Frame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: captureQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Stop releases the stream. Safe to call any number of times.
func (c *Camera) Stop() {
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.gen++
	c.mu.Unlock()
	if stream != nil {
		stopTracks(stream)
	}
}

func stopTracks(stream MediaStream) {
	for _, t := range stream.Tracks() {
		t.Stop()
	}
}
