package resolution

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"A, B", []string{"A", "B"}},
		{"Do X, Do Y", []string{"Do X", "Do Y"}},
		{"  solo  ", []string{"solo"}},
		{"a,,b, ,c,", []string{"a", "b", "c"}},
		{"", []string{}},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.in))
		})
	}
}

func TestDraftRecord(t *testing.T) {
	rec := Draft{
		CaseNumber:  "2024-02",
		Title:       "T",
		Signatories: "A, B",
		Clauses:     "",
	}.Record()

	assert.Equal(t, "2024-02", rec.CaseNumber)
	assert.Equal(t, []string{"A", "B"}, rec.Signatories)
	assert.NotNil(t, rec.OperativeClauses)
	assert.Empty(t, rec.OperativeClauses)
	assert.True(t, rec.Has(KeyConclusion))
}

func TestRecordMarshal_NewRecordCarriesAllKeys(t *testing.T) {
	data, err := json.Marshal(Draft{CaseNumber: "1"}.Record())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"caseNumber": "1",
		"title": "",
		"preamble": "",
		"type": "",
		"submittedBy": "",
		"date": "",
		"signatories": [],
		"operativeClauses": [],
		"conclusion": ""
	}`, string(data))
}

func TestRecordUnmarshal_KeepsKeyOrderAndUnknownKeys(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"date": "2024-01-01", "caseNumber": "9", "votes": {"yes": 3}}`), &rec))

	assert.Equal(t, []string{"date", "caseNumber", "votes"}, rec.Keys())
	assert.Equal(t, "9", rec.CaseNumber)
	assert.False(t, rec.Has(KeyTitle))

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"date":"2024-01-01","caseNumber":"9","votes":{"yes":3}}`, string(data))
}

func TestRecordUnmarshal_MistypedKnownFieldIsPreserved(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"caseNumber": "1", "signatories": ["a", 2], "title": null}`), &rec))

	assert.Nil(t, rec.Signatories)
	assert.Empty(t, rec.Title)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"caseNumber": "1", "signatories": ["a", 2], "title": null}`, string(data))
}

func TestRecordUnmarshal_DuplicateKeyLastWins(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"caseNumber": "1", "title": "a", "title": "b"}`), &rec))

	assert.Equal(t, "b", rec.Title)
	assert.Equal(t, []string{"caseNumber", "title"}, rec.Keys())
}

func TestRecordUnmarshal_DuplicateKeyLastNullWins(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"caseNumber": "1", "title": "x", "signatories": ["a"], "title": null, "signatories": null}`), &rec))

	assert.Empty(t, rec.Title)
	assert.Empty(t, rec.Signatories)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"caseNumber": "1", "title": null, "signatories": null}`, string(out))
}

func TestRecordUnmarshal_DuplicateKeyValueReplacesNull(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"caseNumber": "1", "title": null, "title": "y"}`), &rec))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"caseNumber": "1", "title": "y"}`, string(out))
}

func TestRecordUnmarshal_RejectsNonObject(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`["caseNumber"]`), &rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object")
}

func TestRecordClone_IsDeep(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"caseNumber": "1", "signatories": ["a"], "x": 1}`), &rec))

	c := rec.Clone()
	c.Signatories[0] = "changed"
	c.keys[0] = "changed"
	c.extra["x"] = json.RawMessage(`2`)

	assert.Equal(t, "a", rec.Signatories[0])
	assert.Equal(t, KeyCaseNumber, rec.keys[0])
	assert.Equal(t, json.RawMessage(`1`), rec.extra["x"])
}
