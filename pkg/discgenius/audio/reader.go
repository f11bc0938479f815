package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

// wavFormat holds the fields of the fmt chunk this package needs.
type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

type wavData struct {
	Format wavFormat
	Data   []byte
}

func readRIFFHeader(r io.Reader) error {
	var hdr struct {
		RIFF [4]byte
		Size uint32
		WAVE [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(hdr.RIFF[:]) != "RIFF" || string(hdr.WAVE[:]) != "WAVE" {
		return errors.New("not a WAV/RIFF file")
	}
	return nil
}

func readFmtChunk(r io.ReadSeeker, chunkSize uint32) (*wavFormat, error) {
	var raw struct {
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}
	if chunkSize < 16 {
		return nil, fmt.Errorf("fmt chunk too small: %d bytes", chunkSize)
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("reading fmt chunk: %w", err)
	}

	format := &wavFormat{
		AudioFormat:   raw.AudioFormat,
		NumChannels:   raw.NumChannels,
		SampleRate:    raw.SampleRate,
		BitsPerSample: raw.BitsPerSample,
	}

	remaining := int64(chunkSize) - 16
	// WAVE_FORMAT_EXTENSIBLE stores the real format in the first two bytes
	// of the sub-format GUID, 8 bytes into the extension.
	if format.AudioFormat == formatExtensible && remaining >= 24 {
		ext := make([]byte, remaining)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, fmt.Errorf("reading fmt extension: %w", err)
		}
		format.AudioFormat = binary.LittleEndian.Uint16(ext[8:10])
		return format, nil
	}
	if remaining > 0 {
		if _, err := r.Seek(remaining, io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("seeking past fmt extras: %w", err)
		}
	}
	return format, nil
}

// scanWavChunks walks the chunk list until both fmt and data are found.
func scanWavChunks(r io.ReadSeeker) (*wavData, error) {
	var out wavData
	fmtFound, dataFound := false, false

	for !(fmtFound && dataFound) {
		var hdr struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}

		switch id := string(hdr.ID[:]); id {
		case "fmt ":
			f, err := readFmtChunk(r, hdr.Size)
			if err != nil {
				return nil, err
			}
			out.Format = *f
			fmtFound = true
		case "data":
			out.Data = make([]byte, hdr.Size)
			if _, err := io.ReadFull(r, out.Data); err != nil {
				return nil, fmt.Errorf("reading data chunk: %w", err)
			}
			dataFound = true
		default:
			if _, err := r.Seek(int64(hdr.Size), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skipping chunk %s: %w", id, err)
			}
		}

		if hdr.Size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("seeking pad byte: %w", err)
			}
		}
	}

	if !fmtFound {
		return nil, errors.New("fmt chunk not found")
	}
	if !dataFound {
		return nil, errors.New("data chunk not found")
	}
	return &out, nil
}

// deinterleaveFloat splits IEEE float sample data into per-channel slices.
func deinterleaveFloat(data []byte, channels, bits int) ([][]float64, error) {
	if channels < 1 {
		return nil, errors.New("wav has no channels")
	}
	if bits != 32 && bits != 64 {
		return nil, fmt.Errorf("unsupported float bit depth %d", bits)
	}
	width := bits / 8
	frames := len(data) / (width * channels)
	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, frames)
	}

	off := 0
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			if bits == 32 {
				out[c][i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
			} else {
				out[c][i] = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
			}
			off += width
		}
	}
	return out, nil
}

// readFloatWAV reads an IEEE float WAV; go-audio/wav only decodes
// integer PCM.
func readFloatWAV(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	if err := readRIFFHeader(f); err != nil {
		return nil, 0, err
	}
	wd, err := scanWavChunks(f)
	if err != nil {
		return nil, 0, err
	}
	if wd.Format.AudioFormat != formatIEEEFloat {
		return nil, 0, fmt.Errorf("unsupported WAV audio format %d", wd.Format.AudioFormat)
	}

	channels, err := deinterleaveFloat(wd.Data, int(wd.Format.NumChannels), int(wd.Format.BitsPerSample))
	if err != nil {
		return nil, 0, err
	}
	return channels, int(wd.Format.SampleRate), nil
}

// probeFormat returns the audio format code of a WAV file.
func probeFormat(path string) (uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := readRIFFHeader(f); err != nil {
		return 0, err
	}
	for {
		var hdr struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
			return 0, fmt.Errorf("fmt chunk not found: %w", err)
		}
		if string(hdr.ID[:]) == "fmt " {
			format, err := readFmtChunk(f, hdr.Size)
			if err != nil {
				return 0, err
			}
			return format.AudioFormat, nil
		}
		skip := int64(hdr.Size) + int64(hdr.Size%2)
		if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
}
