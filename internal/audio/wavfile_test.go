package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWav writes 16-bit PCM frames; samples are interleaved when channels > 1
func writeTestWav(t *testing.T, sampleRate, channels int, samples []float64) string {
	t.Helper()

	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(s*32767)))
	}

	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+len(data)))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(header[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(len(data)))

	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestWavCapturerReadsConsecutiveBlocks(t *testing.T) {
	const rate = 8000
	samples := make([]float64, 2500)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*200*float64(i)/rate)
	}
	path := writeTestWav(t, rate, 1, samples)

	c := NewWavCapturer(path, 1000, nil)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	if c.SampleRate() != rate {
		t.Fatalf("expected %d Hz, got %d", rate, c.SampleRate())
	}

	for block := 0; block < 2; block++ {
		buf, err := c.GetBuffer()
		if err != nil {
			t.Fatalf("block %d: %v", block, err)
		}
		if len(buf.Samples) != 1000 {
			t.Fatalf("block %d: expected 1000 samples, got %d", block, len(buf.Samples))
		}
		for _, i := range []int{0, 17, 999} {
			want := samples[block*1000+i]
			if math.Abs(float64(buf.Samples[i])-want) > 1e-3 {
				t.Fatalf("block %d sample %d: expected %.4f, got %.4f", block, i, want, buf.Samples[i])
			}
		}
	}
	if pos := c.Position(); pos != 0.25 {
		t.Fatalf("expected position 0.25s, got %v", pos)
	}

	// 500 frames remain, less than a block
	if _, err := c.GetBuffer(); !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}

func TestWavCapturerMixesStereoToMono(t *testing.T) {
	frames := 64
	samples := make([]float64, frames*2)
	for i := 0; i < frames; i++ {
		samples[2*i] = 0.4
		samples[2*i+1] = -0.2
	}
	path := writeTestWav(t, 8000, 2, samples)

	c := NewWavCapturer(path, 32, nil)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	buf, err := c.GetBuffer()
	if err != nil {
		t.Fatalf("get buffer: %v", err)
	}
	for i, s := range buf.Samples {
		if math.Abs(float64(s)-0.1) > 1e-3 {
			t.Fatalf("sample %d: expected mono mix 0.1, got %v", i, s)
		}
	}
}

func TestWavCapturerSilenceIsCentred(t *testing.T) {
	path := writeTestWav(t, 8000, 1, make([]float64, 512))

	c := NewWavCapturer(path, 512, nil)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	buf, err := c.GetBuffer()
	if err != nil {
		t.Fatalf("get buffer: %v", err)
	}
	sumSquares := 0.0
	for i, s := range buf.Samples {
		if math.Abs(float64(s)) > 1e-3 {
			t.Fatalf("sample %d: expected digital silence near 0, got %v", i, s)
		}
		sumSquares += float64(s) * float64(s)
	}
	// Must stay under the 0.01 silence gate
	if rms := math.Sqrt(sumSquares / float64(len(buf.Samples))); rms >= 0.01 {
		t.Fatalf("expected silent block, rms %v", rms)
	}
}

func TestWavCapturerFullScale(t *testing.T) {
	path := writeTestWav(t, 8000, 1, []float64{1, -1, 0.5, -0.5})

	c := NewWavCapturer(path, 4, nil)
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Stop()

	buf, err := c.GetBuffer()
	if err != nil {
		t.Fatalf("get buffer: %v", err)
	}
	for i, want := range []float64{1, -1, 0.5, -0.5} {
		if math.Abs(float64(buf.Samples[i])-want) > 1e-3 {
			t.Fatalf("sample %d: expected %v, got %v", i, want, buf.Samples[i])
		}
	}
}

func TestWavCapturerMissingFile(t *testing.T) {
	c := NewWavCapturer(filepath.Join(t.TempDir(), "missing.wav"), 1024, nil)
	if err := c.Start(); !errors.Is(err, ErrAcquisitionFailed) {
		t.Fatalf("expected ErrAcquisitionFailed, got %v", err)
	}
	if c.IsCapturing() {
		t.Fatal("capturer must stay idle after a failed start")
	}
}
