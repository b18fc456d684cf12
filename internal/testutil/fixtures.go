package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleResolutions is a small backing file used across package tests.
const SampleResolutions = `[
    {
        "caseNumber": "2024-01",
        "title": "On Harbour Tariffs",
        "preamble": "Recalling the charter,",
        "type": "General",
        "submittedBy": "Delegation of Arden",
        "date": "2024-03-01",
        "signatories": ["Arden", "Belmont"],
        "operativeClauses": ["Abolishes the levy", "Requests a report"],
        "conclusion": "Adopted."
    },
    {
        "caseNumber": "2023-07",
        "title": "Old Business",
        "date": "2023-11-30"
    }
]`

// WriteResolutions writes content as resolutions.json in a fresh temp
// directory and returns the path.
func WriteResolutions(t testing.TB, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolutions.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write resolutions: %v", err)
	}
	return path
}
