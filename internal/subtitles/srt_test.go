package subtitles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEncode(t *testing.T) {
	file := File{Cues: []Cue{
		{Index: 1, Start: 0, End: ms(6100), Text: "A"},
		{Index: 2, Start: ms(5500), End: 1*time.Hour + 2*time.Minute + 3*time.Second + ms(4), Text: "B\nsecond line"},
	}}
	got := string(Encode(file))
	want := "1\n00:00:00,000 --> 00:00:06,100\nA\n\n" +
		"2\n00:00:05,500 --> 01:02:03,004\nB\nsecond line\n\n"
	if got != want {
		t.Fatalf("Encode mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestParseReadsEncodedOutput(t *testing.T) {
	input := "\ufeff1\r\n00:00:01,000 --> 00:00:02,500\r\nHello\r\nthere\r\n\r\n" +
		"2\n00:00:03.000 --> 00:00:04,000 X1:10\nWorld\n\n\n"
	file, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(file.Cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(file.Cues))
	}
	if file.Cues[0].Text != "Hello\nthere" {
		t.Fatalf("unexpected text %q", file.Cues[0].Text)
	}
	if file.Cues[1].Start != 3*time.Second || file.Cues[1].End != 4*time.Second {
		t.Fatalf("unexpected timing %v-%v", file.Cues[1].Start, file.Cues[1].End)
	}
}

func TestParseMissingIndex(t *testing.T) {
	file, err := Parse([]byte("00:00:01,000 --> 00:00:02,000\nno index\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(file.Cues) != 1 || file.Cues[0].Index != 1 {
		t.Fatalf("unexpected cues %+v", file.Cues)
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"x\n00:00:01,000 --> 00:00:02,000\ntext",
		"1\n00:00:01 --> 00:00:02,000\ntext",
		"1\nnot timing\ntext",
		"1",
	} {
		if _, err := Parse([]byte(input)); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestBounds(t *testing.T) {
	file := Format([]Segment{{Start: 2, End: 3, Text: "a"}, {Start: 1, End: 9, Text: "b"}}, Padding{})
	first, last := Bounds(file)
	if first != time.Second || last != 9*time.Second {
		t.Fatalf("Bounds = %v, %v", first, last)
	}
}

func TestValidate(t *testing.T) {
	if issues := Validate(File{}, 0); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues for empty file: %v", issues)
	}
	file := Format([]Segment{{Start: 0, End: 10, Text: "a"}}, DefaultPadding)
	if issues := Validate(file, 10*time.Second); len(issues) != 0 {
		t.Fatalf("padding within tolerance flagged: %v", issues)
	}
	if issues := Validate(file, 5*time.Second); len(issues) != 1 || !strings.HasPrefix(issues[0], "duration_mismatch") {
		t.Fatalf("expected duration mismatch, got %v", issues)
	}
}

func TestSaveWritesSRT(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "srt")
	file := Format([]Segment{{Start: 0, End: 1, Text: "hello"}}, DefaultPadding)

	path, err := Save(dir, "abc123", file)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join(dir, "abc123.srt") {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != string(Encode(file)) {
		t.Fatalf("saved content mismatch: %q", data)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Cues) != 1 || loaded.Cues[0] != file.Cues[0] {
		t.Fatalf("loaded cues %+v, want %+v", loaded.Cues, file.Cues)
	}
}

func TestSaveRejectsPathKeys(t *testing.T) {
	for _, key := range []string{"", "../escape", "a/b", ".."} {
		if _, err := Save(t.TempDir(), key, File{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
