// Package media shells out to ffmpeg/ffprobe for rendering and probing.
// All output format constants (canvas, fps, codecs) are fixed here from
// config so every segment is encoded identically and the concat join can
// stream-copy.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"timeline-pipeline/config"
)

type Tool struct {
	ffmpeg   string
	ffprobe  string
	width    int
	height   int
	fps      int
	fontSize int
}

func NewTool(cfg *config.Config) *Tool {
	return &Tool{
		ffmpeg:   cfg.Video.FFmpegPath,
		ffprobe:  cfg.Video.FFprobePath,
		width:    cfg.Video.Width,
		height:   cfg.Video.Height,
		fps:      cfg.Video.FPS,
		fontSize: cfg.Video.CaptionFontSize,
	}
}

// SegmentSpec describes one still-image segment render. An empty ImagePath
// renders a dark title card; an empty AudioPath attaches generated silence
// so every segment carries a uniform audio stream.
type SegmentSpec struct {
	ImagePath   string
	AudioPath   string
	Caption     string
	DurationSec float64
	OutPath     string
}

// StillSegment renders a single timeline segment: the image held static for
// the full duration, caption burned in as a lower-third box, audio starting
// at zero offset.
func (t *Tool) StillSegment(ctx context.Context, spec SegmentSpec) error {
	if spec.DurationSec <= 0 {
		return fmt.Errorf("segment duration must be positive, got %v", spec.DurationSec)
	}

	args := []string{"-y"}
	if spec.ImagePath != "" {
		args = append(args, "-loop", "1", "-i", spec.ImagePath)
	} else {
		args = append(args, "-f", "lavfi",
			"-i", fmt.Sprintf("color=c=0x101020:s=%dx%d:r=%d", t.width, t.height, t.fps))
	}
	if spec.AudioPath != "" {
		args = append(args, "-i", spec.AudioPath)
	} else {
		args = append(args, "-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
	}

	args = append(args,
		"-vf", t.segmentFilter(spec.Caption),
		"-t", fmtSeconds(spec.DurationSec),
		"-r", strconv.Itoa(t.fps),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		spec.OutPath,
	)

	cmd := exec.CommandContext(ctx, t.ffmpeg, args...)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg segment: %w\n%s", err, string(b))
	}
	return nil
}

// segmentFilter scales and pads to the vertical canvas and burns the
// caption into the lower third for the whole segment.
func (t *Tool) segmentFilter(caption string) string {
	f := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		t.width, t.height, t.width, t.height,
	)
	if caption != "" {
		f += fmt.Sprintf(
			",drawtext=text='%s':fontcolor=white:fontsize=%d:box=1:boxcolor=black@0.5:boxborderw=14:x=(w-text_w)/2:y=h-h/4",
			EscapeDrawtext(caption), t.fontSize,
		)
	}
	return f
}

// Concat joins segments in the given order with the concat demuxer. The
// list file is written next to the output.
func (t *Tool) Concat(ctx context.Context, segmentPaths []string, outPath string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}

	lines := make([]string, len(segmentPaths))
	for i, p := range segmentPaths {
		lines[i] = fmt.Sprintf("file '%s'", p)
	}
	listFile := filepath.Join(filepath.Dir(outPath), "concat_list.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, t.ffmpeg, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

// DuckMusic lays the music bed under the program at the given volume. The
// bed loops to cover the full duration and is trimmed by -shortest; the
// narration track is mixed with normalize=0 so it is never attenuated.
func (t *Tool) DuckMusic(ctx context.Context, videoPath, musicPath string, volume float64, outPath string) error {
	filter := fmt.Sprintf(
		"[1:a]volume=%.2f[bed];[0:a][bed]amix=inputs=2:duration=first:normalize=0[aout]",
		volume,
	)
	cmd := exec.CommandContext(ctx, t.ffmpeg, "-y",
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		outPath,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg music mix: %w\n%s", err, string(b))
	}
	return nil
}

// ProbeDuration returns the playable duration of a media file in seconds,
// measured by ffprobe from the actual container.
func (t *Tool) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return dur, nil
}

// EscapeDrawtext escapes characters that break ffmpeg's drawtext filter
// expression.
func EscapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "%", "\\%")
	return s
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
