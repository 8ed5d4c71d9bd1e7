package tts

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/lokutor-ai/voiceturn/internal/turn"
)

// PiperTTS synthesizes speech locally by shelling out to the piper CLI
// binary, one process per segment: text goes in on stdin, raw PCM16LE
// comes out on stdout. Grounded on the knobs of the Python ancestor's
// PiperTTS (original_source/services/backend/services/tts/piper.py —
// model/config path, sample rate, CUDA flag) but re-expressed as an exec
// wrapper rather than an in-process voice library, since no Go piper
// binding exists in the retrieval pack.
type PiperTTS struct {
	binary     string
	modelPath  string
	configPath string
	useCUDA    bool
	sampleRate int

	mime   string
	format string

	chunkBytes int
}

type PiperOptions struct {
	Binary     string
	ModelPath  string
	ConfigPath string
	UseCUDA    bool
	SampleRate int
	ChunkBytes int
}

func NewPiperTTS(opts PiperOptions) *PiperTTS {
	binary := opts.Binary
	if binary == "" {
		binary = "piper"
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = 22050
	}
	chunkBytes := opts.ChunkBytes
	if chunkBytes == 0 {
		chunkBytes = 4096
	}
	return &PiperTTS{
		binary:     binary,
		modelPath:  opts.ModelPath,
		configPath: opts.ConfigPath,
		useCUDA:    opts.UseCUDA,
		sampleRate: sampleRate,
		mime:       "audio/L16",
		format:     "pcm_s16le",
		chunkBytes: chunkBytes,
	}
}

func (p *PiperTTS) Synthesize(ctx context.Context, text string) (turn.SpeechStream, error) {
	args := []string{"--model", p.modelPath, "--output-raw"}
	if p.configPath != "" {
		args = append(args, "--config", p.configPath)
	}
	if p.useCUDA {
		args = append(args, "--cuda")
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("piper: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("piper: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("piper: start: %w", err)
	}

	if _, err := io.WriteString(stdin, text+"\n"); err != nil {
		cmd.Process.Kill()
		return nil, fmt.Errorf("piper: write text: %w", err)
	}
	stdin.Close()

	return &piperStream{
		cmd:    cmd,
		reader: bufio.NewReaderSize(stdout, p.chunkBytes),
		buf:    make([]byte, p.chunkBytes),
	}, nil
}

func (p *PiperTTS) Mime() string    { return p.mime }
func (p *PiperTTS) Format() string  { return p.format }
func (p *PiperTTS) SampleRate() int { return p.sampleRate }
func (p *PiperTTS) Channels() int   { return 1 }
func (p *PiperTTS) Name() string    { return "piper" }

type piperStream struct {
	cmd    *exec.Cmd
	reader *bufio.Reader
	buf    []byte

	mu   sync.Mutex
	done bool
}

func (s *piperStream) Next(ctx context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil, false, nil
	}

	n, err := s.reader.Read(s.buf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, s.buf[:n])
		return chunk, true, nil
	}
	if err == io.EOF {
		s.done = true
		waitErr := s.cmd.Wait()
		if waitErr != nil {
			return nil, false, fmt.Errorf("piper: process exited with error: %w", waitErr)
		}
		return nil, false, nil
	}
	if err != nil {
		s.done = true
		return nil, false, fmt.Errorf("piper: read stdout: %w", err)
	}
	return nil, false, nil
}
