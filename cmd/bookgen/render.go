package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bookgen-ai-api/internal/application/book"
	wfmodel "bookgen-ai-api/internal/workflow/model"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderOutline(o *wfmodel.BookOutline) string {
	var b strings.Builder
	b.WriteString(renderFields([][2]string{
		{"Title", o.Title},
		{"Description", o.Description},
		{"Model", o.Model},
		{"Tokens", strconv.Itoa(o.TokenUsed)},
	}))
	b.WriteString("\n")

	rows := make([][]string, 0, len(o.Chapters))
	for _, spec := range o.Chapters {
		rows = append(rows, []string{
			strconv.Itoa(spec.ChapterNumber),
			spec.Title,
			joinList(spec.MainCharacters),
			spec.MoodAndTone,
		})
	}
	b.WriteString(renderTable(
		[]string{"#", "Title", "Characters", "Mood"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	))
	return b.String()
}

func renderGeneration(r *book.GenerationResult) string {
	report := r.Report
	fields := [][2]string{
		{"Book", r.Book.ID},
		{"Title", r.Book.Title},
		{"Status", string(r.Book.Status)},
		{"Succeeded", joinInts(report.Succeeded)},
		{"Skipped", joinInts(report.Skipped)},
		{"Existing", joinInts(report.Existing)},
		{"Tokens", strconv.Itoa(r.Outline.TokenUsed + report.TokenUsed)},
	}
	if report.Error != "" {
		fields = append(fields, [2]string{"Error", report.Error})
	}
	return renderFields(fields)
}

func renderChapterAnalysis(a *book.ChapterAnalysis) string {
	return renderFields([][2]string{
		{"Chapter", a.ChapterID},
		{"Summary", a.Summary},
		{"Mood", a.Mood},
		{"Cliffhanger", strconv.FormatBool(a.Cliffhanger)},
		{"Characters", joinList(a.Characters)},
		{"Key events", joinList(a.KeyEvents)},
		{"Words", strconv.Itoa(a.WordCount)},
		{"Analysis", aiStatus(a.AIAnalysis)},
	})
}

func renderBookAnalysis(a *book.BookAnalysis) string {
	stats := a.BookStats
	return renderFields([][2]string{
		{"Book", a.BookID},
		{"Status", string(a.Status)},
		{"Summary", a.Summary},
		{"Genre", a.Genre},
		{"Tone", a.Tone},
		{"Themes", joinList(a.Themes)},
		{"Chapters", fmt.Sprintf("%d indexed (%d analyzed) / %d total", stats.AnalyzedChapters, stats.DeepAnalyzedChapters, stats.TotalChapters)},
		{"Words", fmt.Sprintf("%d (avg %d)", stats.TotalWordCount, stats.AverageWordCount)},
		{"Cliffhangers", strconv.Itoa(stats.ChaptersWithCliffhangers)},
		{"Analysis", aiStatus(a.AIAnalysis)},
	})
}

func renderBatch(r *book.BatchAnalysisResult) string {
	rows := make([][]string, 0, len(r.Chapters))
	for _, a := range r.Chapters {
		rows = append(rows, []string{
			a.ChapterID,
			a.Mood,
			strconv.FormatBool(a.Cliffhanger),
			strconv.Itoa(a.WordCount),
			aiStatus(a.AIAnalysis),
		})
	}
	var b strings.Builder
	b.WriteString(renderTable(
		[]string{"Chapter", "Mood", "Cliffhanger", "Words", "Analysis"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	if len(r.Failed) > 0 {
		b.WriteString("\nfailed: ")
		b.WriteString(joinList(r.Failed))
	}
	if r.Book != nil {
		b.WriteString("\n")
		b.WriteString(renderBookAnalysis(r.Book))
	}
	return b.String()
}

func aiStatus(a wfmodel.AIAnalysis) string {
	if !a.Success {
		if a.Error == "" {
			return "failed"
		}
		return "failed: " + a.Error
	}
	return fmt.Sprintf("ok (%s, %d tokens)", a.Model, a.TokenUsed)
}
