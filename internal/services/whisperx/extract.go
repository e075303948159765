package whisperx

import (
	"context"
	"fmt"
)

// extractArgs builds the ffmpeg arguments that turn the first audio stream
// of source into a mono 16 kHz PCM WAV at dest.
func extractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ExtractFullAudio writes the audio of source to dest as a WAV suitable for
// WhisperX.
func (s *Service) ExtractFullAudio(ctx context.Context, source, dest string) error {
	if source == "" || dest == "" {
		return fmt.Errorf("extract audio: source and destination required")
	}
	if err := s.run(ctx, s.ffmpegBinary, extractArgs(source, dest)...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}
