package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

// Mic wraps PortAudio capture. It runs on its own OS-level callback context;
// the only thing it ever does with shared state is write samples into a
// Source through the writer adapter.
type Mic struct {
	stream *portaudio.Stream
	buf    []int16
}

// InitDevices starts the host audio API. Call once before OpenMic.
func InitDevices() error { return portaudio.Initialize() }

// TeardownDevices releases the host audio API.
func TeardownDevices() { _ = portaudio.Terminate() }

// OpenMic opens the default capture device at the given sample rate. A
// failure here is the session's DeviceError: fatal, not retried.
func OpenMic(sampleRate, framesPerBuffer int) (*Mic, error) {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}

	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return &Mic{stream: stream, buf: buf}, nil
}

func (m *Mic) Start() error { return m.stream.Start() }
func (m *Mic) Stop() error  { return m.stream.Stop() }
func (m *Mic) Close() error { return m.stream.Close() }

// Stream reads from the mic and writes PCM16-LE to w until an error, a
// cancelled context, or stop.
func (m *Mic) Stream(ctx context.Context, w io.Writer) error {
	var out bytes.Buffer
	out.Grow(len(m.buf) * 2) // int16 = 2 bytes per sample
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := m.stream.Read(); err != nil {
			return err
		}
		out.Reset()
		if err := binary.Write(&out, binary.LittleEndian, m.buf); err != nil {
			return err
		}
		if _, err := w.Write(out.Bytes()); err != nil {
			return err
		}
	}
}

// SampleWriter adapts a PCM16-LE byte stream into push calls on a sample
// sink, typically Source.Push or the session manager's PushSamples.
func SampleWriter(push func([]int16)) io.Writer {
	return &sampleWriter{push: push}
}

type sampleWriter struct {
	push    func([]int16)
	pending []byte
}

func (w *sampleWriter) Write(p []byte) (int, error) {
	data := p
	if len(w.pending) > 0 {
		data = append(w.pending, p...)
		w.pending = nil
	}

	n := len(data) / 2
	if n > 0 {
		samples := make([]int16, n)
		for i := 0; i < n; i++ {
			samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
		}
		w.push(samples)
	}

	if len(data)%2 != 0 {
		w.pending = []byte{data[len(data)-1]}
	}
	return len(p), nil
}
