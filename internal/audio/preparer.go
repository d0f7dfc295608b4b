package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Transcode target: mono, 16 kHz, ~48 kbit/s. Optimal for speech
// transcription; anything higher wastes provider payload budget.
var transcodeArgs = []string{"-ac", "1", "-ar", "16000", "-b:a", "48k"}

// codecCandidate is one entry in the compression cascade.
type codecCandidate struct {
	codec string
	ext   string
}

// codecCascade is tried in order; the first codec the local ffmpeg build
// supports wins. pcm_s16le is the always-present last resort.
var codecCascade = []codecCandidate{
	{"libmp3lame", "mp3"},
	{"mp3", "mp3"},
	{"aac", "m4a"},
	{"libvorbis", "ogg"},
	{"pcm_s16le", "wav"},
}

// segmentCodecFor derives the slice output codec from the input extension.
func segmentCodecFor(ext string) codecCandidate {
	switch ext {
	case "m4a":
		return codecCandidate{"aac", "m4a"}
	case "ogg", "oga":
		return codecCandidate{"libvorbis", "ogg"}
	case "wav":
		return codecCandidate{"pcm_s16le", "wav"}
	default:
		return codecCandidate{"libmp3lame", "mp3"}
	}
}

// ManualCompressionSuggestions is shown when every codec in the cascade
// fails: the user can shrink the file themselves and retry.
var ManualCompressionSuggestions = []string{
	"compress the audio manually: ffmpeg -i input -ac 1 -ar 16000 -b:a 48k output.mp3",
	"split the audio into shorter files and submit them separately",
	"install an ffmpeg build with libmp3lame, aac, or libvorbis support",
}

/// Preparer decides how to present audio to the transcriber: pass it through,
// transcode it under the provider limit, or slice it into fixed segments.
type Preparer struct {
	ffmpegPath    string
	providerLimit int64
	segmentSec    int

	cmd    commandRunner
	stat   fileStatter
	lookup pathLooker
	log    *slog.Logger
}

// PreparerOption configures a Preparer.
type PreparerOption func(*Preparer)

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) PreparerOption {
	return func(p *Preparer) { p.cmd = r }
}

// WithFileStatter sets the file statter (for testing).
func WithFileStatter(s fileStatter) PreparerOption {
	return func(p *Preparer) { p.stat = s }
}

// WithPathLooker sets the PATH resolver (for testing).
func WithPathLooker(l pathLooker) PreparerOption {
	return func(p *Preparer) { p.lookup = l }
}

// WithProviderLimit overrides the provider payload cap (for testing).
func WithProviderLimit(limit int64) PreparerOption {
	return func(p *Preparer) { p.providerLimit = limit }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) PreparerOption {
	return func(p *Preparer) { p.log = l }
}

// NewPreparer creates a Preparer. ffmpegPath may be empty, in which case
// ffmpeg is resolved from PATH on first use.
func NewPreparer(ffmpegPath string, opts ...PreparerOption) *Preparer {
	p := &Preparer{
		ffmpegPath:    ffmpegPath,
		providerLimit: ProviderLimit,
		segmentSec:    SegmentDurationSec,
		cmd:           osCommandRunner{},
		stat:          osFileStatter{},
		lookup:        osPathLooker{},
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// resolveFFmpeg finds the transcoder binary, detecting unavailability up
// front so the job fails with an actionable message instead of an ENOENT
// buried in a subprocess error.
func (p *Preparer) resolveFFmpeg() (string, error) {
	if p.ffmpegPath != "" {
		return p.ffmpegPath, nil
	}
	path, err := p.lookup.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg not found on PATH", ErrTranscoderUnavailable)
	}
	p.ffmpegPath = path
	return path, nil
}

// Prepare builds the transcription plan for the original artifact. All
// produced files are created under the custodian's directory and registered
// with it.
func (p *Preparer) Prepare(ctx context.Context, cust *Custodian, original Artifact) (Plan, error) {
	if original.SizeBytes <= p.providerLimit {
		p.log.Info("audio under provider limit, single-file plan",
			"size", original.SizeBytes, "limit", p.providerLimit)
		return Plan{Single: &original}, nil
	}

	transcoded, err := p.transcode(ctx, cust, original)
	if err != nil {
		return Plan{}, err
	}

	if transcoded.SizeBytes <= p.providerLimit {
		p.log.Info("transcoded under provider limit, single-file plan",
			"size", transcoded.SizeBytes, "limit", p.providerLimit)
		return Plan{Single: &transcoded}, nil
	}

	segments, err := p.slice(ctx, cust, transcoded)
	if err != nil {
		return Plan{}, err
	}
	p.log.Info("audio sliced into fixed segments",
		"segments", len(segments), "segment_seconds", p.segmentSec)
	return Plan{Segments: segments, SegmentDurationSec: float64(p.segmentSec)}, nil
}

// transcode compresses the original through the codec cascade. The first
// codec that produces a valid artifact wins; codec-unavailable errors fall
// through to the next candidate.
func (p *Preparer) transcode(ctx context.Context, cust *Custodian, original Artifact) (Artifact, error) {
	ffmpeg, err := p.resolveFFmpeg()
	if err != nil {
		return Artifact{}, err
	}

	var lastErr error
	for _, cand := range codecCascade {
		outPath := filepath.Join(cust.Dir(), "transcoded."+cand.ext)

		args := []string{"-y", "-i", original.Path}
		args = append(args, transcodeArgs...)
		args = append(args, "-c:a", cand.codec, outPath)

		output, err := p.cmd.CombinedOutput(ctx, ffmpeg, args)
		if err != nil {
			if ctx.Err() != nil {
				return Artifact{}, ctx.Err()
			}
			lastErr = fmt.Errorf("codec %s: %v: %s", cand.codec, err, firstLine(output))
			p.log.Warn("transcode codec failed, trying next", "codec", cand.codec, "error", err)
			_ = osFileRemover{}.Remove(outPath)
			continue
		}
		cust.Add(outPath)

		artifact, err := p.statArtifact(outPath, RoleTranscoded)
		if err != nil {
			lastErr = err
			continue
		}
		if _, err := Validate(outPath); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrValidationFailed, err)
			continue
		}
		p.log.Info("transcode succeeded", "codec", cand.codec, "size", artifact.SizeBytes)
		return artifact, nil
	}

	return Artifact{}, fmt.Errorf("%w: all codecs failed (last: %v)", ErrTranscoderUnavailable, lastErr)
}

// slice cuts the artifact into fixed-duration segments with ffmpeg's segment
// muxer. -reset_timestamps keeps every slice starting at zero, which is what
// the fixed-offset merge assumes.
func (p *Preparer) slice(ctx context.Context, cust *Custodian, in Artifact) ([]Artifact, error) {
	ffmpeg, err := p.resolveFFmpeg()
	if err != nil {
		return nil, err
	}

	cand := segmentCodecFor(in.Ext)
	pattern := filepath.Join(cust.Dir(), "segment_%03d."+cand.ext)

	args := []string{
		"-y", "-i", in.Path,
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", p.segmentSec),
		"-reset_timestamps", "1",
		"-c:a", cand.codec,
		pattern,
	}
	output, err := p.cmd.CombinedOutput(ctx, ffmpeg, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrSegmentationFailed, err, firstLine(output))
	}

	matches, err := filepath.Glob(filepath.Join(cust.Dir(), "segment_*."+cand.ext))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("%w: no segments produced", ErrSegmentationFailed)
	}
	// Zero-padded names make lexicographic order equal time order.
	slices.Sort(matches)

	segments := make([]Artifact, 0, len(matches))
	for _, path := range matches {
		cust.Add(path)
		artifact, err := p.statArtifact(path, RoleSegment)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSegmentationFailed, err)
		}
		if _, err := Validate(path); err != nil {
			return nil, fmt.Errorf("%w: segment %s: %v", ErrValidationFailed, filepath.Base(path), err)
		}
		segments = append(segments, artifact)
	}
	return segments, nil
}

// statArtifact builds an Artifact from a path on disk.
func (p *Preparer) statArtifact(path string, role Role) (Artifact, error) {
	info, err := p.stat.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Artifact{
		Path:      path,
		SizeBytes: info.Size(),
		Ext:       extOf(path),
		Role:      role,
	}, nil
}

// firstLine trims subprocess output to its first line for error messages.
func firstLine(output []byte) string {
	s := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// WriteOriginal writes uploaded bytes into the custodian's directory as the
// job's original artifact, normalizing the extension.
func WriteOriginal(cust *Custodian, name string, data []byte) (Artifact, error) {
	ext := extOf(name)
	if ext == "" {
		ext = sniffExt(data)
	}
	path := filepath.Join(cust.Dir(), "original."+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Artifact{}, fmt.Errorf("write original artifact: %w", err)
	}
	cust.Add(path)
	return Artifact{
		Path:      path,
		SizeBytes: int64(len(data)),
		Ext:       ext,
		Role:      RoleOriginal,
	}, nil
}

// sniffExt guesses an extension from magic bytes when the upload has none.
func sniffExt(data []byte) string {
	header := data
	if len(header) > signatureLen {
		header = header[:signatureLen]
	}
	switch {
	case len(header) >= 4 && string(header[:4]) == "OggS":
		return "ogg"
	case len(header) >= 4 && string(header[:4]) == "fLaC":
		return "flac"
	case len(header) >= 4 && string(header[:4]) == "RIFF":
		return "wav"
	case len(header) >= 12 && strings.Contains(string(header), "ftyp"):
		return "m4a"
	default:
		return "mp3"
	}
}
