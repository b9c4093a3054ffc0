package object

import (
	"testing"
)

func TestResolvePublicURLWithCDNBase(t *testing.T) {
	client, err := NewClient("localhost:9000", "minio", "minio123", false)
	if err != nil {
		t.Fatalf("construct minio client: %v", err)
	}
	store := NewMinIOStore(client, "listing-images", "https://cdn.example.com/")

	got := store.ResolvePublicURL("listings/o/abc-photo.jpg")
	want := "https://cdn.example.com/listings/o/abc-photo.jpg"
	if got != want {
		t.Fatalf("ResolvePublicURL = %s, want %s", got, want)
	}
}

func TestResolvePublicURLDirectFallback(t *testing.T) {
	client, err := NewClient("localhost:9000", "minio", "minio123", false)
	if err != nil {
		t.Fatalf("construct minio client: %v", err)
	}
	store := NewMinIOStore(client, "listing-images", "")

	got := store.ResolvePublicURL("listings/o/abc-photo.jpg")
	want := "http://localhost:9000/listing-images/listings/o/abc-photo.jpg"
	if got != want {
		t.Fatalf("ResolvePublicURL = %s, want %s", got, want)
	}
}
