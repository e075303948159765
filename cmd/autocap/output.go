package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"autocap/internal/captioning"
	"autocap/internal/wistia"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printProjects renders a table on terminals and numbered lines otherwise.
func printProjects(out io.Writer, projects []wistia.Project, table bool) {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found")
		return
	}
	if !table {
		for i, p := range projects {
			fmt.Fprintf(out, "%d. %s: %s\n", i+1, p.HashedID, p.Name)
		}
		return
	}
	rows := make([][]string, 0, len(projects))
	for i, p := range projects {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.HashedID,
			p.Name,
			strconv.Itoa(p.MediaCount),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "ID", "Name", "Media"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	))
}

// printResults renders the per-video summary of a project run.
func printResults(out io.Writer, results []captioning.Result, action string) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No videos processed")
		return
	}
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		status := "ok"
		detail := r.CaptionURL
		if r.Failed() {
			failed++
			status = "failed"
			detail = firstLine(r.Err.Error())
		} else if r.Outcome.Cues > 0 {
			detail = fmt.Sprintf("%d cues, %s", r.Outcome.Cues, r.CaptionURL)
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Index + 1),
			r.VideoID,
			r.Name,
			status,
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Video", "Name", "Status", "Detail"},
		rows,
		[]columnAlignment{alignRight},
	))
	fmt.Fprintf(out, "%d %s, %d failed\n", len(results)-failed, action, failed)
}

func failedVideos(results []captioning.Result) error {
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d videos failed", failed, len(results))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
