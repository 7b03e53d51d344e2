package uid

import (
	"testing"

	"github.com/hatlonely/flakeless/ref"
	"github.com/hatlonely/flakeless/uid/intgen"
	"github.com/hatlonely/flakeless/uid/strgen"
)

func TestNewIntGenerator(t *testing.T) {
	generator := NewIntGenerator()
	if generator == nil {
		t.Fatal("NewIntGenerator() returned nil")
	}

	ids := make(map[uint64]bool)
	for len(ids) < 1000 {
		id, err := generator.Generate()
		if intgen.IsTransient(err) {
			continue
		}
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		if ids[id] {
			t.Fatalf("Generated duplicate ID: %d", id)
		}
		ids[id] = true
	}
}

func TestNewStrGenerator(t *testing.T) {
	generator := NewStrGenerator()
	if generator == nil {
		t.Fatal("NewStrGenerator() returned nil")
	}

	ids := make(map[string]bool)
	for len(ids) < 100 {
		id, err := generator.Generate()
		if intgen.IsTransient(err) {
			continue
		}
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		if len(id) != 11 {
			t.Errorf("ID length should be 11, got %d", len(id))
		}
		if _, err := strgen.FormatBase64.Decode(id); err != nil {
			t.Errorf("ID %q should decode: %v", id, err)
		}
		if ids[id] {
			t.Fatalf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestNewGeneratorWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *ref.TypeOptions
		wantErr bool
	}{
		{
			name: "snowflake",
			options: &ref.TypeOptions{
				Namespace: "github.com/hatlonely/flakeless/uid/intgen",
				Type:      "SnowflakeGenerator",
				Options:   &intgen.SnowflakeOptions{WorkerID: 3},
			},
		},
		{
			name: "timestamp seq",
			options: &ref.TypeOptions{
				Namespace: "github.com/hatlonely/flakeless/uid/intgen",
				Type:      "TimestampSeqGenerator",
			},
		},
		{
			name: "unknown",
			options: &ref.TypeOptions{
				Namespace: "github.com/hatlonely/flakeless/uid/intgen",
				Type:      "UnknownGenerator",
			},
			wantErr: true,
		},
		{
			name:    "nil",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator, err := NewIntGeneratorWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewIntGeneratorWithOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && generator == nil {
				t.Fatal("generator is nil")
			}
		})
	}

	generator, err := NewStrGeneratorWithOptions(&ref.TypeOptions{
		Namespace: "github.com/hatlonely/flakeless/uid/strgen",
		Type:      "FlakeGenerator",
		Options:   &strgen.Options{OutputType: "base16"},
	})
	if err != nil {
		t.Fatalf("NewStrGeneratorWithOptions() failed: %v", err)
	}
	if generator.(*strgen.FlakeGenerator).Format() != strgen.FormatBase16 {
		t.Error("expected base16 generator")
	}
}
