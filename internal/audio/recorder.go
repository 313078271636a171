package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

// Recorder archives a session's raw audio to disk as chunks arrive, then
// encodes the finished session to mp3 when an encoder is available, falling
// back to WAV.
type Recorder struct {
	audioDir string

	mu         sync.Mutex
	sessionID  string
	rawPath    string
	rawFile    *os.File
	sampleRate int

	encode func(rawPath, sessionID string) (string, error)
}

func NewRecorder(audioDir string, sampleRate int) *Recorder {
	if audioDir == "" {
		audioDir = filepath.Join("data", "audio")
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	r := &Recorder{audioDir: audioDir, sampleRate: sampleRate}
	r.encode = r.defaultEncode
	return r
}

func (r *Recorder) StartSession(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.audioDir, 0o755); err != nil {
		return fmt.Errorf("create audio directory: %w", err)
	}

	if r.rawFile != nil {
		_ = r.rawFile.Close()
	}

	rawPath := filepath.Join(r.audioDir, sessionID+".pcm")
	rawFile, err := os.OpenFile(rawPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open raw pcm file: %w", err)
	}

	r.sessionID = sessionID
	r.rawPath = rawPath
	r.rawFile = rawFile

	return nil
}

// WriteSamples appends chunk samples to the active session's raw file. A
// recorder without an active session silently drops samples.
func (r *Recorder) WriteSamples(samples []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rawFile == nil {
		return nil
	}

	if err := binary.Write(r.rawFile, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("write raw pcm samples: %w", err)
	}
	return nil
}

// EndSession closes the raw file, encodes it, removes the raw intermediate
// and returns the encoded audio path. No active session returns "".
func (r *Recorder) EndSession() (string, error) {
	r.mu.Lock()
	if r.sessionID == "" || r.rawFile == nil {
		r.mu.Unlock()
		return "", nil
	}

	sessionID := r.sessionID
	rawPath := r.rawPath
	rawFile := r.rawFile

	r.sessionID = ""
	r.rawPath = ""
	r.rawFile = nil
	r.mu.Unlock()

	if err := rawFile.Close(); err != nil {
		return "", fmt.Errorf("close raw pcm file: %w", err)
	}

	audioPath, err := r.encode(rawPath, sessionID)
	if err != nil {
		return "", err
	}

	_ = os.Remove(rawPath)
	return audioPath, nil
}

func (r *Recorder) defaultEncode(rawPath, sessionID string) (string, error) {
	r.mu.Lock()
	sampleRate := r.sampleRate
	r.mu.Unlock()

	mp3Path := filepath.Join(r.audioDir, sessionID+".mp3")

	if err := encodeWithFFmpeg(rawPath, mp3Path, sampleRate); err == nil {
		return mp3Path, nil
	}
	if err := encodeWithLame(rawPath, mp3Path, sampleRate); err == nil {
		return mp3Path, nil
	}

	wavPath := filepath.Join(r.audioDir, sessionID+".wav")
	if err := pcmToWav(rawPath, wavPath, sampleRate); err != nil {
		return "", fmt.Errorf("encode wav fallback: %w", err)
	}

	return wavPath, nil
}

func encodeWithFFmpeg(rawPath, outputPath string, sampleRate int) error {
	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-i", rawPath,
		outputPath,
	)
	return cmd.Run()
}

func encodeWithLame(rawPath, outputPath string, sampleRate int) error {
	khz := float64(sampleRate) / 1000.0
	formatted := strconv.FormatFloat(khz, 'f', -1, 64)
	cmd := exec.Command(
		"lame",
		"-r",
		"-s", formatted,
		"--bitwidth", "16",
		"-m", "m",
		rawPath,
		outputPath,
	)
	return cmd.Run()
}

func pcmToWav(rawPath, wavPath string, sampleRate int) error {
	pcmData, err := os.ReadFile(rawPath)
	if err != nil {
		return fmt.Errorf("read raw pcm data: %w", err)
	}

	out, err := os.OpenFile(wavPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open wav output: %w", err)
	}
	defer func() { _ = out.Close() }()

	header := bytes.NewBuffer(make([]byte, 0, 44))
	writeWavHeader(header, len(pcmData), sampleRate)

	if _, err := out.Write(header.Bytes()); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := out.Write(pcmData); err != nil {
		return fmt.Errorf("write wav payload: %w", err)
	}

	return nil
}
