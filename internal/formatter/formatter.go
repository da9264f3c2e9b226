// package formatter renders sync reports to various formats (JSON, plain text, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/shared"
)

// ReportToJSON generates a JSON representation of a sync report.
func ReportToJSON(report *models.SyncReport) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}

// ReportToText converts a sync report to a plain text summary, including
// the list of source tracks that could not be resolved.
func ReportToText(report *models.SyncReport) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Sync: %s\n", report.Playlist))
	buf.WriteString(fmt.Sprintf("Run: %s\n", report.RunID))
	buf.WriteString(fmt.Sprintf("Duration: %s\n\n", report.FinishedAt.Sub(report.StartedAt).Round(1e9)))

	buf.WriteString(fmt.Sprintf("Tracks: %d\n", report.TotalTracks))
	buf.WriteString(fmt.Sprintf("Matched: %d (%d from cache)\n", report.MatchedCount, report.CacheHits))
	buf.WriteString(fmt.Sprintf("Not found: %d\n", report.NotFound))
	buf.WriteString(fmt.Sprintf("Ambiguous: %d\n", report.Ambiguous))
	buf.WriteString(fmt.Sprintf("Search errors: %d\n", report.SearchErrors))
	buf.WriteString(fmt.Sprintf("Applied operations: %d\n", len(report.Applied)))

	if len(report.Unresolved) > 0 {
		buf.WriteString("\nSongs not synced:\n")
		for i, track := range report.Unresolved {
			duration := shared.FormatDuration(track.Duration)
			buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, track.PrimaryArtist(), track.Title, duration))
		}
	}

	return buf.Bytes()
}

// UnresolvedToCSV converts a report's unresolved tracks to CSV with
// columns: Title, Artist, Album, Duration, ISRC
func UnresolvedToCSV(report *models.SyncReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artist", "Album", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range report.Unresolved {
		record := []string{
			track.Title,
			track.PrimaryArtist(),
			track.Album,
			strconv.Itoa(track.Duration),
			track.ISRC,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportExportResult contains the paths of files created by WriteReportExport
type ReportExportResult struct {
	ReportFile     string
	UnresolvedFile string
}

// WriteReportExport writes a sync report to disk as JSON, with an
// accompanying CSV of unresolved tracks when any exist.
//
// Defaults to the run ID as the base filename & creates
// {base}_report.json and optionally {base}_unresolved.csv
func WriteReportExport(report *models.SyncReport, baseFilepath string) (*ReportExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = report.RunID
	}

	jsonData, err := ReportToJSON(report)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report JSON: %w", err)
	}

	reportFile := baseFilepath + "_report.json"
	if err := os.WriteFile(reportFile, jsonData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write report file: %w", err)
	}

	result := &ReportExportResult{ReportFile: reportFile}

	if len(report.Unresolved) > 0 {
		csvData, err := UnresolvedToCSV(report)
		if err != nil {
			return nil, fmt.Errorf("failed to generate CSV: %w", err)
		}

		unresolvedFile := baseFilepath + "_unresolved.csv"
		if err := os.WriteFile(unresolvedFile, csvData, 0644); err != nil {
			return nil, fmt.Errorf("failed to write unresolved file: %w", err)
		}
		result.UnresolvedFile = unresolvedFile
	}

	return result, nil
}
