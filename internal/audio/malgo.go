package audio

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer implements audio capture using miniaudio through malgo.
// Unlike PortAudio it can select a capture device by name.
type MalgoCapturer struct {
	mu            sync.Mutex
	ctx           *malgo.AllocatedContext
	device        *malgo.Device
	window        *blockWindow
	bufferSize    int
	sampleRate    int // requested rate
	actualRate    int // rate negotiated by the device, set on Start
	deviceName    string
	amplification float32
	logger        *slog.Logger
}

// NewMalgoCapturer creates a capturer for the device whose name contains
// deviceName (case-insensitive); an empty name selects the system default.
func NewMalgoCapturer(bufferSize, sampleRate int, deviceName string, logger *slog.Logger) *MalgoCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MalgoCapturer{
		window:        newBlockWindow(bufferSize),
		bufferSize:    bufferSize,
		sampleRate:    sampleRate,
		deviceName:    deviceName,
		amplification: 1.0,
		logger:        logger.With("backend", "malgo"),
	}
}

// Start begins audio capture
func (c *MalgoCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		return ErrAlreadyCapturing
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: init malgo context: %v", ErrAcquisitionFailed, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(c.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if c.deviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			c.logger.Warn("cannot list capture devices, using default", "device", c.deviceName, "err", err)
		} else {
			names := make([]string, len(infos))
			for i, info := range infos {
				names[i] = info.Name()
			}
			if i := matchDevice(names, c.deviceName); i >= 0 {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				c.logger.Info("selected capture device", "device", names[i])
			} else {
				c.logger.Warn("no capture device matches, using default", "device", c.deviceName, "available", names)
			}
		}
	}

	onRecvFrames := func(_, pInputSamples []byte, framecount uint32) {
		if len(pInputSamples) == 0 || framecount == 0 {
			return
		}
		samples := unsafe.Slice((*float32)(unsafe.Pointer(&pInputSamples[0])), int(framecount))
		c.receive(samples)
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: init capture device: %v", ErrAcquisitionFailed, err)
	}

	c.window = newBlockWindow(c.bufferSize)
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: start capture device: %v", ErrAcquisitionFailed, err)
	}

	c.ctx = ctx
	c.device = device
	c.actualRate = negotiatedRate(c.sampleRate, device.SampleRate())
	if c.actualRate != c.sampleRate {
		c.logger.Warn("device runs at a different sample rate", "requested", c.sampleRate, "actual", c.actualRate)
	}
	c.logger.Info("capture started", "sample_rate", c.actualRate, "buffer_size", c.bufferSize)
	return nil
}

// matchDevice returns the index of the first name containing want,
// ignoring case, or -1
func matchDevice(names []string, want string) int {
	want = strings.ToLower(want)
	for i, name := range names {
		if strings.Contains(strings.ToLower(name), want) {
			return i
		}
	}
	return -1
}

// negotiatedRate is the rate blocks are tagged with: the device's own rate,
// or the requested one when the device reports none
func negotiatedRate(requested int, actual uint32) int {
	if actual == 0 {
		return requested
	}
	return int(actual)
}

func (c *MalgoCapturer) receive(frames []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mono := make([]float32, len(frames))
	for i, s := range frames {
		mono[i] = clampSample(s * c.amplification)
	}
	c.window.push(mono)
}

// Stop ends audio capture and releases the device
func (c *MalgoCapturer) Stop() error {
	c.mu.Lock()
	device, ctx := c.device, c.ctx
	c.device, c.ctx = nil, nil
	c.mu.Unlock()

	if device == nil {
		return ErrNotCapturing
	}

	// Uninit waits for the data callback, which takes mu
	device.Uninit()
	if ctx != nil {
		_ = ctx.Uninit()
		ctx.Free()
	}
	c.logger.Info("capture stopped")
	return nil
}

// GetBuffer returns a copy of the most recent audio block
func (c *MalgoCapturer) GetBuffer() (*AudioBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil, ErrNotCapturing
	}
	return &AudioBuffer{
		Samples:    c.window.snapshot(),
		SampleRate: c.actualRate,
	}, nil
}

// IsCapturing returns true if currently capturing audio
func (c *MalgoCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device != nil
}

// SetAmplification sets the audio amplification factor
func (c *MalgoCapturer) SetAmplification(factor float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if factor < 0.1 {
		factor = 0.1
	}
	c.amplification = factor
}
