package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte // key -> body
	getErr   error
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &notFoundError{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "NoSuchKey: key not found" }

func TestStore_ArchiveDecision(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	now := time.Date(2026, 8, 12, 15, 0, 0, 0, time.UTC)
	record := &DecisionRecord{
		Version:    "1.0",
		CaseID:     "case-123",
		ArchivedAt: now,
		Case: CaseDetails{
			SymptomText: "crushing chest pain radiating to left arm",
			AgeBand:     "65+",
		},
		Decision: DecisionDetails{
			EmergencyLevel: "critical",
			Confidence:     0.95,
			Category:       "Emergency",
			Department:     "Emergency Medicine",
			Source:         "ai",
		},
		FinalScore: 3.42,
	}

	err := store.ArchiveDecision(context.Background(), record)
	require.NoError(t, err)

	// One put for the record, one for the manifest.
	require.Len(t, mock.putCalls, 2)
	assert.Contains(t, mock.putCalls[0].key, "decisions/v1/by-date/2026/08/12/case-123.json")

	var decoded DecisionRecord
	err = json.Unmarshal(mock.putCalls[0].body, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "case-123", decoded.CaseID)
	assert.Equal(t, "Emergency", decoded.Decision.Category)

	assert.Contains(t, mock.putCalls[1].key, "decisions/v1/manifests/")
	var entry ManifestEntry
	err = json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry)
	require.NoError(t, err)
	assert.Equal(t, "case-123", entry.CaseID)
	assert.Equal(t, "critical", entry.EmergencyLevel)
	assert.Equal(t, 3.42, entry.FinalScore)
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())

	err := store.ArchiveDecision(context.Background(), &DecisionRecord{})
	assert.NoError(t, err) // no-op, no error
}

func TestStore_ManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	entry1 := ManifestEntry{CaseID: "case-1", Category: "Emergency"}
	entry2 := ManifestEntry{CaseID: "case-2", Category: "Non-urgent"}

	require.NoError(t, store.AppendManifest(context.Background(), entry1))
	require.NoError(t, store.AppendManifest(context.Background(), entry2))

	// The second append should contain both entries.
	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	require.Len(t, lines, 2)

	var first ManifestEntry
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "case-1", first.CaseID)
}

func TestStore_ManifestReadFailureDoesNotTruncate(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	mock.getErr = errors.New("InternalError: please retry")
	err := store.AppendManifest(context.Background(), ManifestEntry{CaseID: "case-9"})
	assert.Error(t, err)
	assert.Empty(t, mock.putCalls, "a failed manifest read must not overwrite the manifest")
}
