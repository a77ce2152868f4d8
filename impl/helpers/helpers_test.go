package helpers

import (
	"testing"
)

func TestKeySlot(t *testing.T) {
	tests := []struct {
		key  string
		slot string
	}{
		{"gs://my-archive/amd64-usr/1234.0.0", "my-archive_amd64-usr_1234.0.0"},
		{"s3://bucket/x86-generic/R17-1208.0.0-a1-b338", "bucket_x86-generic_R17-1208.0.0-a1-b338"},
		{"no-scheme/build", "no-scheme_build"},
	}
	for _, test := range tests {
		if KeySlot(test.key) != test.slot {
			t.Errorf("KeySlot(%s) = %s, want %s", test.key, KeySlot(test.key), test.slot)
		}
	}
}

func TestParseArchiveURL(t *testing.T) {
	bucket, prefix, err := ParseArchiveURL("gs://my-archive/amd64-usr/1234.0.0/")
	if err != nil {
		t.FailNow()
	}
	if bucket != "my-archive" || prefix != "amd64-usr/1234.0.0" {
		t.Errorf("got %s, %s", bucket, prefix)
	}
	for _, bad := range []string{"gs://bucket-only", "gs:///no-bucket/build", ""} {
		if _, _, err := ParseArchiveURL(bad); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}
