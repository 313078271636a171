package audio

import (
	"bytes"
	"encoding/binary"
)

const (
	pcmChannels = 1
	pcmBitDepth = 16
)

// EncodeWAV wraps raw mono 16-bit PCM samples in a WAV container. Used to
// hand chunk audio to speech APIs that expect a self-describing format.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	writeWavHeader(buf, dataSize, sampleRate)
	_ = binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

func writeWavHeader(buf *bytes.Buffer, dataSize, sampleRate int) {
	byteRate := sampleRate * pcmChannels * pcmBitDepth / 8
	blockAlign := pcmChannels * pcmBitDepth / 8

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(pcmChannels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(pcmBitDepth))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
}
