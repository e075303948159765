package subtitles

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const timingSeparator = " --> "

// Encode renders the file in SRT format: index line, timing line, text, blank line.
func Encode(file File) []byte {
	var buf bytes.Buffer
	for i, cue := range file.Cues {
		index := cue.Index
		if index <= 0 {
			index = i + 1
		}
		buf.WriteString(strconv.Itoa(index))
		buf.WriteByte('\n')
		buf.WriteString(FormatTimestamp(cue.Start))
		buf.WriteString(timingSeparator)
		buf.WriteString(FormatTimestamp(cue.End))
		buf.WriteByte('\n')
		buf.WriteString(strings.TrimSpace(cue.Text))
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}

// FormatTimestamp renders d as HH:MM:SS,mmm. Negative durations render as zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

// ParseTimestamp reads an SRT timestamp. A period is accepted in place of the
// millisecond comma.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// Parse reads SRT content back into cues. Blocks missing the index line are
// numbered by position.
func Parse(data []byte) (File, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return File{}, nil
	}

	var file File
	for n, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")
		index := len(file.Cues) + 1
		if !strings.Contains(lines[0], "-->") {
			parsed, err := strconv.Atoi(strings.TrimSpace(lines[0]))
			if err != nil {
				return File{}, fmt.Errorf("srt block %d: invalid index %q", n+1, lines[0])
			}
			index = parsed
			lines = lines[1:]
		}
		if len(lines) == 0 {
			return File{}, fmt.Errorf("srt block %d: missing timing line", n+1)
		}
		start, end, err := parseTiming(lines[0])
		if err != nil {
			return File{}, fmt.Errorf("srt block %d: %w", n+1, err)
		}
		file.Cues = append(file.Cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(strings.Join(lines[1:], "\n")),
		})
	}
	return file, nil
}

func splitBlocks(content string) []string {
	var blocks []string
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Some writers append position hints after the end timestamp.
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Bounds returns the earliest cue start and latest cue end.
func Bounds(file File) (time.Duration, time.Duration) {
	if len(file.Cues) == 0 {
		return 0, 0
	}
	first := file.Cues[0].Start
	var last time.Duration
	for _, cue := range file.Cues {
		if cue.Start < first {
			first = cue.Start
		}
		if cue.End > last {
			last = cue.End
		}
	}
	return first, last
}

// Validate checks a caption file for problems worth reporting before upload.
// mediaDuration may be zero when unknown. An empty result means the file
// passed.
func Validate(file File, mediaDuration time.Duration) []string {
	var issues []string
	if len(file.Cues) == 0 {
		return append(issues, "empty_subtitle_file")
	}
	for i, cue := range file.Cues {
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("inverted_cue: index=%d", cue.Index))
		}
		if i > 0 && cue.Start < file.Cues[i-1].Start {
			issues = append(issues, fmt.Sprintf("out_of_order_cue: index=%d", cue.Index))
		}
	}
	if mediaDuration > 0 {
		_, last := Bounds(file)
		if last > mediaDuration+durationTolerance {
			issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", (last-mediaDuration).Seconds()))
		}
	}
	return issues
}

const durationTolerance = 2 * time.Second
