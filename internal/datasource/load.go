package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// LoadTasks opens the best available source and fetches one snapshot.
// It is the one-shot path used by `tt export` and `tt check`.
func LoadTasks(ctx context.Context, opts DiscoveryOptions) ([]model.Task, Source, error) {
	src, err := Open(opts)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := src.Fetch(ctx)
	if err != nil {
		return nil, src, fmt.Errorf("loading from %s: %w", src.Describe(), err)
	}
	return tasks, src, nil
}

// ValidateSource checks that a file-backed source can be read and records
// the outcome on src.
func ValidateSource(src *DataSource) error {
	var err error
	switch src.Type {
	case SourceTypeReplica:
		var n int
		n, err = countReplicaTasks(src.Path)
		src.TaskCount = n
	case SourceTypeFile:
		err = validateFile(src)
	default:
		src.Valid = true
		return nil
	}
	src.Valid = err == nil
	if err != nil {
		src.ValidationError = err.Error()
	}
	return err
}
