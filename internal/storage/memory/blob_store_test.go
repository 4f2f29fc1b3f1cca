package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte(`{"id":"x"}`)
	uri, err := store.PutObject(context.Background(), "audits/x.json", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://audits/x.json" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = '['
	stored, contentType, ok := store.Object("audits/x.json")
	if !ok || string(stored) != `{"id":"x"}` || contentType != "application/json" {
		t.Fatalf("expected stored copy to be immutable, got %q %q", stored, contentType)
	}
	if _, err := store.PutObject(context.Background(), " ", "", bytes.NewReader(nil)); err == nil {
		t.Fatal("expected empty path error")
	}
}
